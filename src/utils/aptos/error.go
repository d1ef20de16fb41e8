package aptos

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrFailedToParse = errors.New("failed to parse response")
	ErrNoCoinStore   = errors.New("account has no coin store")

	// Failures worth retrying: transport errors, overloaded or failing node
	ErrTransient = errors.New("transient chain error")
)

const (
	ErrorCodeAccountNotFound     = "account_not_found"
	ErrorCodeResourceNotFound    = "resource_not_found"
	ErrorCodeTransactionNotFound = "transaction_not_found"
	ErrorCodeVmError             = "vm_error"
)

// Move VM status codes returned with submission rejections
const (
	VmErrorSequenceNumberTooOld = 3
)

// Error body returned by the node and the faucet
type Error struct {
	StatusCode  int    `json:"-"`
	Message     string `json:"message"`
	ErrorCode   string `json:"error_code"`
	VmErrorCode *int   `json:"vm_error_code,omitempty"`
}

func (self *Error) Error() string {
	if self.ErrorCode == "" {
		return fmt.Sprintf("unexpected status %d: %s", self.StatusCode, self.Message)
	}
	return fmt.Sprintf("unexpected status %d: %s: %s", self.StatusCode, self.ErrorCode, self.Message)
}

func (self *Error) Is(target error) bool {
	return target == ErrTransient &&
		(self.StatusCode >= http.StatusInternalServerError || self.StatusCode == http.StatusTooManyRequests)
}

func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

func IsNotFound(err error, code string) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.StatusCode == http.StatusNotFound && (code == "" || e.ErrorCode == code)
}

// Transient failure without an answer from the node. The request may still have been processed.
func IsTransport(err error) bool {
	var e *Error
	return IsTransient(err) && !errors.As(err, &e)
}

// Node refused the submission because the sender's sequence number was already used
func IsSequenceNumberTooOld(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	if e.VmErrorCode != nil {
		return *e.VmErrorCode == VmErrorSequenceNumberTooOld
	}
	return strings.Contains(e.Message, "SEQUENCE_NUMBER_TOO_OLD")
}

// Marks transport level failures as transient
func transportError(err error) error {
	return fmt.Errorf("%w: %w", ErrTransient, err)
}
