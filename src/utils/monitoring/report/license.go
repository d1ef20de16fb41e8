package report

import (
	"go.uber.org/atomic"
)

type LicenseErrors struct {
	Conflicts   atomic.Uint64 `json:"conflicts"`
	SelfLicense atomic.Uint64 `json:"self_license"`
	Ownership   atomic.Uint64 `json:"ownership"`
}

type LicenseState struct {
	Purchased atomic.Uint64 `json:"purchased"`
	Granted   atomic.Uint64 `json:"granted"`
	Voided    atomic.Uint64 `json:"voided"`
}

type LicenseReport struct {
	State  LicenseState  `json:"state"`
	Errors LicenseErrors `json:"errors"`
}
