package report

type Report struct {
	Run          *RunReport          `json:"run,omitempty"`
	Settlement   *SettlementReport   `json:"settlement,omitempty"`
	License      *LicenseReport      `json:"license,omitempty"`
	Balance      *BalanceReport      `json:"balance,omitempty"`
	Notification *NotificationReport `json:"notification,omitempty"`
}
