package contact

import "context"

type Repository interface {
	FindByID(ctx context.Context, id uint) (*Contact, error)
	FindByNumber(ctx context.Context, tenantID uint, number string) (*Contact, error)
	Save(ctx context.Context, c *Contact) error
	Update(ctx context.Context, c *Contact) error
}
