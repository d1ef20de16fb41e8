package report

import (
	"go.uber.org/atomic"
)

type NotificationErrors struct {
	// Channel to the publisher was full
	Dropped atomic.Uint64 `json:"dropped"`

	Publish           atomic.Uint64 `json:"publish"`
	PersistentFailure atomic.Uint64 `json:"persistent"`
}

type NotificationState struct {
	Emitted                        atomic.Uint64 `json:"emitted"`
	Published                      atomic.Uint64 `json:"published"`
	LastSuccessfulMessageTimestamp atomic.Int64  `json:"last_successful_message_timestamp"`
}

// Terminal settlement outcomes forwarded to Redis
type NotificationReport struct {
	State  NotificationState  `json:"state"`
	Errors NotificationErrors `json:"errors"`
}
