package account

import "context"

// Repository is the Account Store: persisted account state read and written
// by the connection lifecycle and the import pipeline.
type Repository interface {
	FindByID(ctx context.Context, id uint) (*Account, error)
	FindAllByTenant(ctx context.Context, tenantID uint) ([]*Account, error)
	// FindPendingTicketClose lists accounts whose import finished with the
	// auto-close flag set and tickets still waiting for the sweep.
	FindPendingTicketClose(ctx context.Context) ([]*Account, error)
	// FindResumable lists accounts whose sessions should be re-established
	// at boot (previously CONNECTED or mid-pairing).
	FindResumable(ctx context.Context) ([]*Account, error)
	Save(ctx context.Context, acc *Account) error
	Update(ctx context.Context, acc *Account) error
}
