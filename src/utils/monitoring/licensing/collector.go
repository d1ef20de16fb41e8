package monitor_licensing

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Collector struct {
	monitor *Monitor

	UpForSeconds                *prometheus.Desc
	SettlementStaged            *prometheus.Desc
	SettlementDuplicates        *prometheus.Desc
	SettlementSubmitted         *prometheus.Desc
	SettlementConfirmed         *prometheus.Desc
	SettlementFailed            *prometheus.Desc
	SettlementPolled            *prometheus.Desc
	ReconcilerRuns              *prometheus.Desc
	ReconcilerTransactionsTaken *prometheus.Desc
	LicensesPurchased           *prometheus.Desc
	LicensesGranted             *prometheus.Desc
	LicensesVoided              *prometheus.Desc
	BalanceQueries              *prometheus.Desc
	BalanceFundings             *prometheus.Desc
	NotificationsEmitted        *prometheus.Desc
	NotificationsPublished      *prometheus.Desc

	SettlementSubmitRejected  *prometheus.Desc
	SettlementSubmitExhausted *prometheus.Desc
	SettlementSubmitRetries   *prometheus.Desc
	SettlementPollFailed      *prometheus.Desc
	SettlementExpired         *prometheus.Desc
	SettlementDbUpdate        *prometheus.Desc
	ReconcilerErrors          *prometheus.Desc
	LicenseConflicts          *prometheus.Desc
	LicenseSelfLicense        *prometheus.Desc
	LicenseOwnership          *prometheus.Desc
	BalanceQueryErrors        *prometheus.Desc
	BalanceFundingTimeouts    *prometheus.Desc
	NotificationsDropped      *prometheus.Desc
	NotificationPublishErrors *prometheus.Desc
}

func NewCollector() *Collector {
	labels := prometheus.Labels{
		"app": "licensing",
	}

	return &Collector{
		UpForSeconds:                prometheus.NewDesc("up_for_seconds", "", nil, labels),
		SettlementStaged:            prometheus.NewDesc("settlement_staged", "", nil, labels),
		SettlementDuplicates:        prometheus.NewDesc("settlement_duplicates", "", nil, labels),
		SettlementSubmitted:         prometheus.NewDesc("settlement_submitted", "", nil, labels),
		SettlementConfirmed:         prometheus.NewDesc("settlement_confirmed", "", nil, labels),
		SettlementFailed:            prometheus.NewDesc("settlement_failed", "", nil, labels),
		SettlementPolled:            prometheus.NewDesc("settlement_polled", "", nil, labels),
		ReconcilerRuns:              prometheus.NewDesc("reconciler_runs", "", nil, labels),
		ReconcilerTransactionsTaken: prometheus.NewDesc("reconciler_transactions_taken", "", nil, labels),
		LicensesPurchased:           prometheus.NewDesc("licenses_purchased", "", nil, labels),
		LicensesGranted:             prometheus.NewDesc("licenses_granted", "", nil, labels),
		LicensesVoided:              prometheus.NewDesc("licenses_voided", "", nil, labels),
		BalanceQueries:              prometheus.NewDesc("balance_queries", "", nil, labels),
		BalanceFundings:             prometheus.NewDesc("balance_fundings", "", nil, labels),
		NotificationsEmitted:        prometheus.NewDesc("notifications_emitted", "", nil, labels),
		NotificationsPublished:      prometheus.NewDesc("notifications_published", "", nil, labels),

		// Errors
		SettlementSubmitRejected:  prometheus.NewDesc("error_settlement_submit_rejected", "", nil, labels),
		SettlementSubmitExhausted: prometheus.NewDesc("error_settlement_submit_exhausted", "", nil, labels),
		SettlementSubmitRetries:   prometheus.NewDesc("error_settlement_submit_retries", "", nil, labels),
		SettlementPollFailed:      prometheus.NewDesc("error_settlement_poll", "", nil, labels),
		SettlementExpired:         prometheus.NewDesc("error_settlement_expired", "", nil, labels),
		SettlementDbUpdate:        prometheus.NewDesc("error_settlement_db_update", "", nil, labels),
		ReconcilerErrors:          prometheus.NewDesc("error_reconciler", "", nil, labels),
		LicenseConflicts:          prometheus.NewDesc("error_license_conflict", "", nil, labels),
		LicenseSelfLicense:        prometheus.NewDesc("error_license_self_license", "", nil, labels),
		LicenseOwnership:          prometheus.NewDesc("error_license_ownership", "", nil, labels),
		BalanceQueryErrors:        prometheus.NewDesc("error_balance_query", "", nil, labels),
		BalanceFundingTimeouts:    prometheus.NewDesc("error_balance_funding_timeout", "", nil, labels),
		NotificationsDropped:      prometheus.NewDesc("error_notifications_dropped", "", nil, labels),
		NotificationPublishErrors: prometheus.NewDesc("error_notification_publish", "", nil, labels),
	}
}

func (self *Collector) WithMonitor(m *Monitor) *Collector {
	self.monitor = m
	return self
}

func (self *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- self.UpForSeconds
	ch <- self.SettlementStaged
	ch <- self.SettlementDuplicates
	ch <- self.SettlementSubmitted
	ch <- self.SettlementConfirmed
	ch <- self.SettlementFailed
	ch <- self.SettlementPolled
	ch <- self.ReconcilerRuns
	ch <- self.ReconcilerTransactionsTaken
	ch <- self.LicensesPurchased
	ch <- self.LicensesGranted
	ch <- self.LicensesVoided
	ch <- self.BalanceQueries
	ch <- self.BalanceFundings
	ch <- self.NotificationsEmitted
	ch <- self.NotificationsPublished
	ch <- self.SettlementSubmitRejected
	ch <- self.SettlementSubmitExhausted
	ch <- self.SettlementSubmitRetries
	ch <- self.SettlementPollFailed
	ch <- self.SettlementExpired
	ch <- self.SettlementDbUpdate
	ch <- self.ReconcilerErrors
	ch <- self.LicenseConflicts
	ch <- self.LicenseSelfLicense
	ch <- self.LicenseOwnership
	ch <- self.BalanceQueryErrors
	ch <- self.BalanceFundingTimeouts
	ch <- self.NotificationsDropped
	ch <- self.NotificationPublishErrors
}

// Collect implements required collect function for all prometheus collectors
func (self *Collector) Collect(ch chan<- prometheus.Metric) {
	report := self.monitor.GetReport()

	ch <- prometheus.MustNewConstMetric(self.UpForSeconds, prometheus.GaugeValue, float64(report.Run.UpForSeconds.Load()))
	ch <- prometheus.MustNewConstMetric(self.SettlementStaged, prometheus.CounterValue, float64(report.Settlement.State.Staged.Load()))
	ch <- prometheus.MustNewConstMetric(self.SettlementDuplicates, prometheus.CounterValue, float64(report.Settlement.State.Duplicates.Load()))
	ch <- prometheus.MustNewConstMetric(self.SettlementSubmitted, prometheus.CounterValue, float64(report.Settlement.State.Submitted.Load()))
	ch <- prometheus.MustNewConstMetric(self.SettlementConfirmed, prometheus.CounterValue, float64(report.Settlement.State.Confirmed.Load()))
	ch <- prometheus.MustNewConstMetric(self.SettlementFailed, prometheus.CounterValue, float64(report.Settlement.State.Failed.Load()))
	ch <- prometheus.MustNewConstMetric(self.SettlementPolled, prometheus.CounterValue, float64(report.Settlement.State.Polled.Load()))
	ch <- prometheus.MustNewConstMetric(self.ReconcilerRuns, prometheus.CounterValue, float64(report.Settlement.State.ReconcilerRuns.Load()))
	ch <- prometheus.MustNewConstMetric(self.ReconcilerTransactionsTaken, prometheus.CounterValue, float64(report.Settlement.State.ReconcilerTransactionsTaken.Load()))
	ch <- prometheus.MustNewConstMetric(self.LicensesPurchased, prometheus.CounterValue, float64(report.License.State.Purchased.Load()))
	ch <- prometheus.MustNewConstMetric(self.LicensesGranted, prometheus.CounterValue, float64(report.License.State.Granted.Load()))
	ch <- prometheus.MustNewConstMetric(self.LicensesVoided, prometheus.CounterValue, float64(report.License.State.Voided.Load()))
	ch <- prometheus.MustNewConstMetric(self.BalanceQueries, prometheus.CounterValue, float64(report.Balance.State.Queries.Load()))
	ch <- prometheus.MustNewConstMetric(self.BalanceFundings, prometheus.CounterValue, float64(report.Balance.State.Fundings.Load()))
	ch <- prometheus.MustNewConstMetric(self.NotificationsEmitted, prometheus.CounterValue, float64(report.Notification.State.Emitted.Load()))
	ch <- prometheus.MustNewConstMetric(self.NotificationsPublished, prometheus.CounterValue, float64(report.Notification.State.Published.Load()))
	ch <- prometheus.MustNewConstMetric(self.SettlementSubmitRejected, prometheus.CounterValue, float64(report.Settlement.Errors.SubmitRejected.Load()))
	ch <- prometheus.MustNewConstMetric(self.SettlementSubmitExhausted, prometheus.CounterValue, float64(report.Settlement.Errors.SubmitExhausted.Load()))
	ch <- prometheus.MustNewConstMetric(self.SettlementSubmitRetries, prometheus.CounterValue, float64(report.Settlement.Errors.SubmitRetries.Load()))
	ch <- prometheus.MustNewConstMetric(self.SettlementPollFailed, prometheus.CounterValue, float64(report.Settlement.Errors.PollFailed.Load()))
	ch <- prometheus.MustNewConstMetric(self.SettlementExpired, prometheus.CounterValue, float64(report.Settlement.Errors.Expired.Load()))
	ch <- prometheus.MustNewConstMetric(self.SettlementDbUpdate, prometheus.CounterValue, float64(report.Settlement.Errors.DbUpdate.Load()))
	ch <- prometheus.MustNewConstMetric(self.ReconcilerErrors, prometheus.CounterValue, float64(report.Settlement.Errors.Reconciler.Load()))
	ch <- prometheus.MustNewConstMetric(self.LicenseConflicts, prometheus.CounterValue, float64(report.License.Errors.Conflicts.Load()))
	ch <- prometheus.MustNewConstMetric(self.LicenseSelfLicense, prometheus.CounterValue, float64(report.License.Errors.SelfLicense.Load()))
	ch <- prometheus.MustNewConstMetric(self.LicenseOwnership, prometheus.CounterValue, float64(report.License.Errors.Ownership.Load()))
	ch <- prometheus.MustNewConstMetric(self.BalanceQueryErrors, prometheus.CounterValue, float64(report.Balance.Errors.Query.Load()))
	ch <- prometheus.MustNewConstMetric(self.BalanceFundingTimeouts, prometheus.CounterValue, float64(report.Balance.Errors.FundingTimeout.Load()))
	ch <- prometheus.MustNewConstMetric(self.NotificationsDropped, prometheus.CounterValue, float64(report.Notification.Errors.Dropped.Load()))
	ch <- prometheus.MustNewConstMetric(self.NotificationPublishErrors, prometheus.CounterValue, float64(report.Notification.Errors.Publish.Load()))
}
