// Package account models one tenant's configured WhatsApp endpoint. Each
// account maps to at most one physical transport connection at runtime.
package account

import (
	"fmt"
	"time"
)

// ImportStatusPendingClose is the sentinel persisted in StatusImportMessages
// when an import finished but tickets still await a manual close action.
const ImportStatusPendingClose = "renderButtonCloseTickets"

// ImportStatusRunning is the sentinel persisted while a drain is in flight.
const ImportStatusRunning = "Running"

type Account struct {
	id       uint
	tenantID uint
	name     string
	status   Status

	// number is the phone identity reported by the transport on connect.
	number string

	// qrCode holds the last QR/pairing payload issued by the transport.
	qrCode string

	// Import window configuration. A nil ImportOldMessages means the
	// account never imports history.
	importOldMessages    *time.Time
	importRecentMessages *time.Time
	importGroupMessages  bool
	statusImportMessages string

	closedTicketsPostImported bool
	allowGroup                bool

	createdAt time.Time
	updatedAt time.Time
}

func NewAccount(tenantID uint, name string) (*Account, error) {
	if tenantID == 0 {
		return nil, fmt.Errorf("tenant ID is required")
	}
	if len(name) == 0 {
		return nil, fmt.Errorf("account name is required")
	}

	now := time.Now()
	return &Account{
		tenantID:  tenantID,
		name:      name,
		status:    StatusDisconnected,
		createdAt: now,
		updatedAt: now,
	}, nil
}

func ReconstructAccount(
	id uint,
	tenantID uint,
	name string,
	status Status,
	number string,
	qrCode string,
	importOldMessages *time.Time,
	importRecentMessages *time.Time,
	importGroupMessages bool,
	statusImportMessages string,
	closedTicketsPostImported bool,
	allowGroup bool,
	createdAt, updatedAt time.Time,
) (*Account, error) {
	if id == 0 {
		return nil, fmt.Errorf("account ID cannot be zero")
	}
	if tenantID == 0 {
		return nil, fmt.Errorf("tenant ID is required")
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid status: %s", status)
	}

	return &Account{
		id:                        id,
		tenantID:                  tenantID,
		name:                      name,
		status:                    status,
		number:                    number,
		qrCode:                    qrCode,
		importOldMessages:         importOldMessages,
		importRecentMessages:      importRecentMessages,
		importGroupMessages:       importGroupMessages,
		statusImportMessages:      statusImportMessages,
		closedTicketsPostImported: closedTicketsPostImported,
		allowGroup:                allowGroup,
		createdAt:                 createdAt,
		updatedAt:                 updatedAt,
	}, nil
}

func (a *Account) ID() uint                        { return a.id }
func (a *Account) TenantID() uint                  { return a.tenantID }
func (a *Account) Name() string                    { return a.name }
func (a *Account) Status() Status                  { return a.status }
func (a *Account) Number() string                  { return a.number }
func (a *Account) QRCode() string                  { return a.qrCode }
func (a *Account) ImportOldMessages() *time.Time   { return a.importOldMessages }
func (a *Account) ImportRecentMessages() *time.Time { return a.importRecentMessages }
func (a *Account) ImportGroupMessages() bool       { return a.importGroupMessages }
func (a *Account) StatusImportMessages() string    { return a.statusImportMessages }
func (a *Account) ClosedTicketsPostImported() bool { return a.closedTicketsPostImported }
func (a *Account) AllowGroup() bool                { return a.allowGroup }
func (a *Account) CreatedAt() time.Time            { return a.createdAt }
func (a *Account) UpdatedAt() time.Time            { return a.updatedAt }

func (a *Account) SetID(id uint) error {
	if a.id != 0 {
		return fmt.Errorf("account ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("account ID cannot be zero")
	}
	a.id = id
	return nil
}

// MarkQRCode records a freshly issued pairing payload and moves the account
// into the qrcode status.
func (a *Account) MarkQRCode(payload string) {
	a.qrCode = payload
	a.status = StatusQRCode
	a.updatedAt = time.Now()
}

// MarkConnected records a successful connection along with the identity the
// transport reported. The QR payload is cleared; it is single-use.
func (a *Account) MarkConnected(number string) {
	a.status = StatusConnected
	a.number = number
	a.qrCode = ""
	a.updatedAt = time.Now()
}

// MarkPending is applied on explicit logout or ban: credentials are gone and
// a human has to re-pair the device.
func (a *Account) MarkPending() {
	a.status = StatusPending
	a.qrCode = ""
	a.updatedAt = time.Now()
}

// MarkDisconnected is the terminal status for a run (QR retries exhausted).
func (a *Account) MarkDisconnected() {
	a.status = StatusDisconnected
	a.qrCode = ""
	a.updatedAt = time.Now()
}

// MarkOpening records an in-flight connection attempt.
func (a *Account) MarkOpening() {
	a.status = StatusOpening
	a.updatedAt = time.Now()
}

// HasImportWindow reports whether the account is configured to backfill
// history after connecting.
func (a *Account) HasImportWindow() bool {
	return a.importOldMessages != nil
}

// InImportWindow reports whether ts falls inside the configured
// [importOldMessages, importRecentMessages] window. An unset upper bound
// means "up to now".
func (a *Account) InImportWindow(ts time.Time) bool {
	if a.importOldMessages == nil {
		return false
	}
	if ts.Before(*a.importOldMessages) {
		return false
	}
	if a.importRecentMessages != nil && ts.After(*a.importRecentMessages) {
		return false
	}
	return true
}

// SetStatusImportMessages updates the import progress sentinel shown to the UI.
func (a *Account) SetStatusImportMessages(v string) {
	a.statusImportMessages = v
	a.updatedAt = time.Now()
}

// ClearImportSettings resets the import window once a run fully completed.
func (a *Account) ClearImportSettings() {
	a.importOldMessages = nil
	a.importRecentMessages = nil
	a.statusImportMessages = ""
	a.updatedAt = time.Now()
}
