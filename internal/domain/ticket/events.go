package ticket

import (
	"context"
	"time"
)

// Event actions pushed to the tenant's UI channel.
const (
	EventActionCreate = "create"
	EventActionUpdate = "update"
)

// Summary is the wire shape of a ticket in UI events.
type Summary struct {
	ID             uint       `json:"id"`
	ContactID      uint       `json:"contactId"`
	AccountID      uint       `json:"whatsappId"`
	UserID         *uint      `json:"userId,omitempty"`
	Status         string     `json:"status"`
	LastMessage    string     `json:"lastMessage,omitempty"`
	UnreadMessages int        `json:"unreadMessages"`
	Imported       *time.Time `json:"imported,omitempty"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Event is one ticket change notification.
type Event struct {
	Action string  `json:"action"`
	Ticket Summary `json:"ticket"`
}

// Summarize builds the event shape from a ticket.
func Summarize(t *Ticket) Summary {
	return Summary{
		ID:             t.ID(),
		ContactID:      t.ContactID(),
		AccountID:      t.AccountID(),
		UserID:         t.UserID(),
		Status:         t.Status().String(),
		LastMessage:    t.LastMessage(),
		UnreadMessages: t.UnreadMessages(),
		Imported:       t.Imported(),
		UpdatedAt:      t.UpdatedAt(),
	}
}

// Notifier publishes ticket events to the tenant's UI channel.
type Notifier interface {
	PublishTicketEvent(ctx context.Context, tenantID uint, ev Event) error
}
