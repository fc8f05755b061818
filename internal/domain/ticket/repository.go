package ticket

import (
	"context"
	"time"
)

// Repository is the Ticket Store.
type Repository interface {
	Save(ctx context.Context, t *Ticket) error
	Update(ctx context.Context, t *Ticket) error
	GetByID(ctx context.Context, id uint) (*Ticket, error)
	// GetByIDWithRelations reloads a ticket fully hydrated (contact and
	// account relations populated) so callers never observe a partial entity.
	GetByIDWithRelations(ctx context.Context, id uint) (*Ticket, error)
	// FindActiveByContact returns the active ticket for a contact, scoped to
	// accountID when non-nil, otherwise to the whole tenant. Returns nil when
	// no active ticket exists.
	FindActiveByContact(ctx context.Context, tenantID, contactID uint, accountID *uint) (*Ticket, error)
	// FindRecentClosed returns the most recently updated closed ticket for a
	// contact, scoped like FindActiveByContact. The backfill reopens it
	// instead of spawning a duplicate. Returns nil when none exists.
	FindRecentClosed(ctx context.Context, tenantID, contactID uint, accountID *uint) (*Ticket, error)
	// FindPendingImported lists tickets still pending whose imported marker
	// is older than before, for the post-import close sweep.
	FindPendingImported(ctx context.Context, accountID uint, before time.Time) ([]*Ticket, error)
}
