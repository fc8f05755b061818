package message

import (
	"fmt"
	"time"
)

// Message is one projected message row. Its ID is the transport-side message
// id, which makes persistence the idempotency point for replays.
type Message struct {
	id        string
	tenantID  uint
	ticketID  uint
	contactID uint
	body      string
	payload   []byte
	fromMe    bool
	read      bool
	imported  bool
	timestamp time.Time
	createdAt time.Time
}

// NewMessage builds a message row from a transport envelope.
func NewMessage(externalID string, tenantID, ticketID, contactID uint, body string, payload []byte, fromMe, imported bool, ts time.Time) (*Message, error) {
	if externalID == "" {
		return nil, fmt.Errorf("message ID is required")
	}
	if ticketID == 0 {
		return nil, fmt.Errorf("ticket ID is required")
	}
	return &Message{
		id:        externalID,
		tenantID:  tenantID,
		ticketID:  ticketID,
		contactID: contactID,
		body:      body,
		payload:   payload,
		fromMe:    fromMe,
		read:      fromMe || imported,
		imported:  imported,
		timestamp: ts,
		createdAt: time.Now(),
	}, nil
}

// ReconstructMessage rebuilds a message from persistence.
func ReconstructMessage(id string, tenantID, ticketID, contactID uint, body string, payload []byte, fromMe, read, imported bool, ts, createdAt time.Time) *Message {
	return &Message{
		id:        id,
		tenantID:  tenantID,
		ticketID:  ticketID,
		contactID: contactID,
		body:      body,
		payload:   payload,
		fromMe:    fromMe,
		read:      read,
		imported:  imported,
		timestamp: ts,
		createdAt: createdAt,
	}
}

func (m *Message) ID() string           { return m.id }
func (m *Message) TenantID() uint       { return m.tenantID }
func (m *Message) TicketID() uint       { return m.ticketID }
func (m *Message) ContactID() uint      { return m.contactID }
func (m *Message) Body() string         { return m.body }
func (m *Message) Payload() []byte      { return m.payload }
func (m *Message) FromMe() bool         { return m.fromMe }
func (m *Message) Read() bool           { return m.read }
func (m *Message) Imported() bool       { return m.imported }
func (m *Message) Timestamp() time.Time { return m.timestamp }
func (m *Message) CreatedAt() time.Time { return m.createdAt }
