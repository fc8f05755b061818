package errors

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is returned by the session registry when no live
// connection exists for an account. Callers must not assume lazy connection.
var ErrNotInitialized = errors.New("whatsapp session not initialized")

// ConnectError signals that a connection attempt could not reach CONNECTED:
// terminal ban, exhausted QR retries, or credential corruption. It is
// reflected into the persisted account status and is not retried beyond the
// lifecycle policy.
type ConnectError struct {
	AccountID uint
	Reason    string
	Err       error
}

func (e *ConnectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connect failed for account %d: %s: %v", e.AccountID, e.Reason, e.Err)
	}
	return fmt.Sprintf("connect failed for account %d: %s", e.AccountID, e.Reason)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// NewConnectError creates a ConnectError for the given account.
func NewConnectError(accountID uint, reason string, err error) *ConnectError {
	return &ConnectError{AccountID: accountID, Reason: reason, Err: err}
}

// IsConnectError reports whether err is a ConnectError.
func IsConnectError(err error) bool {
	var ce *ConnectError
	return errors.As(err, &ce)
}

// ImportAborted signals a fatal precondition failure before the drain loop
// started (for example, no live connection for the account). The whole run
// fails and the account's import flags are left untouched for manual retry.
type ImportAborted struct {
	AccountID uint
	Reason    string
	Err       error
}

func (e *ImportAborted) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("import aborted for account %d: %s: %v", e.AccountID, e.Reason, e.Err)
	}
	return fmt.Sprintf("import aborted for account %d: %s", e.AccountID, e.Reason)
}

func (e *ImportAborted) Unwrap() error { return e.Err }

// NewImportAborted creates an ImportAborted error.
func NewImportAborted(accountID uint, reason string, err error) *ImportAborted {
	return &ImportAborted{AccountID: accountID, Reason: reason, Err: err}
}

// IsImportAborted reports whether err is an ImportAborted error.
func IsImportAborted(err error) bool {
	var ia *ImportAborted
	return errors.As(err, &ia)
}
