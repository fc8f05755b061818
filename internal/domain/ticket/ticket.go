// Package ticket models an open conversation between one contact and one
// WhatsApp account. Invariant: a (contactID, accountID) pair has at most one
// ticket in an active status at any time.
package ticket

import (
	"fmt"
	"time"
)

type Ticket struct {
	id        uint
	tenantID  uint
	contactID uint
	accountID uint
	userID    *uint
	status    Status

	lastMessage    string
	unreadMessages int

	// imported marks tickets created by the historical backfill; the
	// post-import sweep only touches tickets whose marker is old enough.
	imported *time.Time

	createdAt time.Time
	updatedAt time.Time
}

func NewTicket(tenantID, contactID, accountID uint, status Status) (*Ticket, error) {
	if tenantID == 0 {
		return nil, fmt.Errorf("tenant ID is required")
	}
	if contactID == 0 {
		return nil, fmt.Errorf("contact ID is required")
	}
	if accountID == 0 {
		return nil, fmt.Errorf("account ID is required")
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid status: %s", status)
	}

	now := time.Now()
	return &Ticket{
		tenantID:  tenantID,
		contactID: contactID,
		accountID: accountID,
		status:    status,
		createdAt: now,
		updatedAt: now,
	}, nil
}

func ReconstructTicket(
	id uint,
	tenantID uint,
	contactID uint,
	accountID uint,
	userID *uint,
	status Status,
	lastMessage string,
	unreadMessages int,
	imported *time.Time,
	createdAt, updatedAt time.Time,
) (*Ticket, error) {
	if id == 0 {
		return nil, fmt.Errorf("ticket ID cannot be zero")
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid status: %s", status)
	}

	return &Ticket{
		id:             id,
		tenantID:       tenantID,
		contactID:      contactID,
		accountID:      accountID,
		userID:         userID,
		status:         status,
		lastMessage:    lastMessage,
		unreadMessages: unreadMessages,
		imported:       imported,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}, nil
}

func (t *Ticket) ID() uint             { return t.id }
func (t *Ticket) TenantID() uint       { return t.tenantID }
func (t *Ticket) ContactID() uint      { return t.contactID }
func (t *Ticket) AccountID() uint      { return t.accountID }
func (t *Ticket) UserID() *uint        { return t.userID }
func (t *Ticket) Status() Status       { return t.status }
func (t *Ticket) LastMessage() string  { return t.lastMessage }
func (t *Ticket) UnreadMessages() int  { return t.unreadMessages }
func (t *Ticket) Imported() *time.Time { return t.imported }
func (t *Ticket) CreatedAt() time.Time { return t.createdAt }
func (t *Ticket) UpdatedAt() time.Time { return t.updatedAt }

func (t *Ticket) SetID(id uint) error {
	if t.id != 0 {
		return fmt.Errorf("ticket ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("ticket ID cannot be zero")
	}
	t.id = id
	return nil
}

func (t *Ticket) IsActive() bool {
	return t.status.IsActive()
}

// AssignedToOther reports whether the ticket belongs to an agent other than
// userID. Unassigned tickets belong to nobody.
func (t *Ticket) AssignedToOther(userID uint) bool {
	return t.userID != nil && *t.userID != userID
}

func (t *Ticket) AssignTo(userID uint) error {
	if userID == 0 {
		return fmt.Errorf("user ID cannot be zero")
	}
	t.userID = &userID
	t.updatedAt = time.Now()
	return nil
}

func (t *Ticket) ChangeStatus(next Status) error {
	if !next.IsValid() {
		return fmt.Errorf("invalid status: %s", next)
	}
	if t.status == next {
		return nil
	}
	if !t.status.CanTransitionTo(next) {
		return fmt.Errorf("cannot transition ticket from %s to %s", t.status, next)
	}
	t.status = next
	t.updatedAt = time.Now()
	return nil
}

// Close closes the ticket regardless of its current active status. Used by
// agent actions and the post-import sweep.
func (t *Ticket) Close() {
	if t.status.IsClosed() {
		return
	}
	t.status = StatusClosed
	t.updatedAt = time.Now()
}

// ReopenForBackfill moves a prematurely closed ticket back to pending so a
// replayed historical message lands on it instead of spawning a duplicate.
func (t *Ticket) ReopenForBackfill() error {
	if !t.status.IsClosed() {
		return fmt.Errorf("only closed tickets can be reopened for backfill")
	}
	t.status = StatusPending
	t.updatedAt = time.Now()
	return nil
}

// MarkImported stamps the backfill marker used by the post-import sweep.
func (t *Ticket) MarkImported(at time.Time) {
	t.imported = &at
	t.updatedAt = time.Now()
}

// RecordMessage updates denormalized conversation state for a new inbound
// message.
func (t *Ticket) RecordMessage(body string, unread bool) {
	t.lastMessage = body
	if unread {
		t.unreadMessages++
	}
	t.updatedAt = time.Now()
}
