// Package whatsapp implements the per-account connection lifecycle: the
// transport port, the pure state machine that classifies transport events,
// the retry scheduler, the session registry, and the supervisor that wires
// them together. The wire protocol itself is opaque; a concrete driver is
// plugged in through the Dialer interface.
package whatsapp

import (
	"context"
	"time"

	"atendo/internal/domain/message"
)

// Default transport timeouts.
const (
	DefaultQueryTimeout      = 60 * time.Second
	DefaultConnectTimeout    = 30 * time.Second
	DefaultKeepAliveInterval = 15 * time.Second
)

// CloseReason classifies a connection close event.
type CloseReason int

const (
	// CloseReasonConnectionLost covers every non-terminal close: network
	// drop, server restart, stream error. The supervisor reconnects.
	CloseReasonConnectionLost CloseReason = iota
	// CloseReasonLoggedOut means the user unlinked the device. No retry.
	CloseReasonLoggedOut
	// CloseReasonBanned means the account was banned by the platform.
	// No retry, and locally cached auth material is purged.
	CloseReasonBanned
)

func (r CloseReason) String() string {
	switch r {
	case CloseReasonLoggedOut:
		return "logged_out"
	case CloseReasonBanned:
		return "banned"
	default:
		return "connection_lost"
	}
}

// Event is a transport lifecycle or message event delivered on the session's
// event stream. The transport serializes events per connection, so handlers
// for one account never run concurrently with each other.
type Event interface {
	event()
}

// PairingEvent is emitted when the transport needs a QR/pairing code scan.
type PairingEvent struct {
	Code string
}

// ConnectedEvent is emitted when the session reaches the connected state.
// Creds carries the session material to persist; nil when the driver dialed
// with existing credentials that did not change.
type ConnectedEvent struct {
	Number   string
	PushName string
	Creds    Credentials
}

// ClosedEvent is emitted exactly once when the connection closes; it is the
// last event on the stream.
type ClosedEvent struct {
	Reason CloseReason
	Err    error
}

// MessageEvent carries a live inbound message.
type MessageEvent struct {
	Message message.RawMessage
}

// HistoryBatchEvent carries a burst of historical messages delivered during
// initial sync. Bursts may arrive unordered and with duplicates.
type HistoryBatchEvent struct {
	Messages []message.RawMessage
}

// HistorySyncCompleteEvent is emitted by drivers that can tell when initial
// sync finished. Not all can; the quiescence timer is the fallback trigger.
type HistorySyncCompleteEvent struct{}

func (PairingEvent) event()             {}
func (ConnectedEvent) event()           {}
func (ClosedEvent) event()              {}
func (MessageEvent) event()             {}
func (HistoryBatchEvent) event()        {}
func (HistorySyncCompleteEvent) event() {}

// Credentials is the opaque persisted session material for one account.
type Credentials []byte

// Transport is one live connection to the messaging platform.
type Transport interface {
	// Events returns the session's event stream. The channel is closed
	// after the ClosedEvent is delivered.
	Events() <-chan Event
	// SendText sends a text message to a chat JID.
	SendText(ctx context.Context, jid, body string) error
	// FetchProfilePicture returns the profile picture URL for a JID.
	FetchProfilePicture(ctx context.Context, jid string) (string, error)
	// Logout invalidates the session server-side.
	Logout(ctx context.Context) error
	// Close tears down the socket; it triggers a ClosedEvent.
	Close() error
}

// Dialer opens transport connections. creds may be nil, in which case the
// driver starts a fresh pairing flow and emits PairingEvents.
type Dialer interface {
	Dial(ctx context.Context, accountID uint, creds Credentials) (Transport, error)
}

// CredentialStore persists session credentials per account.
type CredentialStore interface {
	Load(ctx context.Context, accountID uint) (Credentials, error)
	Save(ctx context.Context, accountID uint, creds Credentials) error
	Delete(ctx context.Context, accountID uint) error
}

// SessionUpdate is pushed to the tenant's UI channel on every connection
// state change.
type SessionUpdate struct {
	AccountID uint   `json:"accountId"`
	Status    string `json:"status"`
	QRCode    string `json:"qrcode,omitempty"`
	Number    string `json:"number,omitempty"`
	Retries   int    `json:"retries,omitempty"`
}

// SessionNotifier publishes session updates to the tenant's UI channel.
type SessionNotifier interface {
	PublishSessionUpdate(ctx context.Context, tenantID uint, update SessionUpdate) error
}
