package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"atendo/internal/domain/ticket"
	"atendo/internal/infrastructure/persistence/mappers"
	"atendo/internal/infrastructure/persistence/models"
	db "atendo/internal/shared/db"
	apperrors "atendo/internal/shared/errors"
)

type TicketRepository struct {
	db     *gorm.DB
	mapper mappers.TicketMapper
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{
		db:     db,
		mapper: mappers.NewTicketMapper(),
	}
}

func (r *TicketRepository) Save(ctx context.Context, t *ticket.Ticket) error {
	model := r.mapper.ToModel(t)
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.Create(model).Error; err != nil {
		return fmt.Errorf("failed to save ticket: %w", err)
	}

	if err := t.SetID(model.ID); err != nil {
		return err
	}

	return nil
}

func (r *TicketRepository) Update(ctx context.Context, t *ticket.Ticket) error {
	model := r.mapper.ToModel(t)
	tx := db.GetTxFromContext(ctx, r.db)

	result := tx.
		Model(&models.TicketModel{}).
		Where("id = ?", model.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(model)

	if result.Error != nil {
		return fmt.Errorf("failed to update ticket: %w", result.Error)
	}

	// Note: RowsAffected may be 0 when updated values are identical to existing values.

	return nil
}

func (r *TicketRepository) GetByID(ctx context.Context, id uint) (*ticket.Ticket, error) {
	var model models.TicketModel
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NewNotFoundError("ticket not found", fmt.Sprintf("id %d", id))
		}
		return nil, fmt.Errorf("failed to find ticket: %w", err)
	}

	return r.mapper.ToDomain(&model)
}

// GetByIDWithRelations reloads a ticket after writes. Relationships are
// managed by application logic rather than gorm associations, so this is a
// plain reload from the row of record.
func (r *TicketRepository) GetByIDWithRelations(ctx context.Context, id uint) (*ticket.Ticket, error) {
	return r.GetByID(ctx, id)
}

// FindActiveByContact returns the single active ticket for a contact, scoped
// to accountID when non-nil. Returns nil when no active ticket exists.
func (r *TicketRepository) FindActiveByContact(ctx context.Context, tenantID, contactID uint, accountID *uint) (*ticket.Ticket, error) {
	var model models.TicketModel
	tx := db.GetTxFromContext(ctx, r.db)

	query := tx.
		Where("tenant_id = ? AND contact_id = ?", tenantID, contactID).
		Where("status IN ?", activeStatusStrings())
	if accountID != nil {
		query = query.Where("account_id = ?", *accountID)
	}

	if err := query.Order("updated_at DESC").First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active ticket: %w", err)
	}

	return r.mapper.ToDomain(&model)
}

// FindRecentClosed returns the most recently updated closed ticket for a
// contact, or nil.
func (r *TicketRepository) FindRecentClosed(ctx context.Context, tenantID, contactID uint, accountID *uint) (*ticket.Ticket, error) {
	var model models.TicketModel
	tx := db.GetTxFromContext(ctx, r.db)

	query := tx.
		Where("tenant_id = ? AND contact_id = ?", tenantID, contactID).
		Where("status = ?", ticket.StatusClosed.String())
	if accountID != nil {
		query = query.Where("account_id = ?", *accountID)
	}

	if err := query.Order("updated_at DESC").First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find closed ticket: %w", err)
	}

	return r.mapper.ToDomain(&model)
}

// FindPendingImported lists tickets still pending whose imported marker is
// older than before.
func (r *TicketRepository) FindPendingImported(ctx context.Context, accountID uint, before time.Time) ([]*ticket.Ticket, error) {
	var modelList []models.TicketModel
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.
		Where("account_id = ?", accountID).
		Where("status = ?", ticket.StatusPending.String()).
		Where("imported IS NOT NULL AND imported < ?", before.UnixMilli()).
		Order("imported ASC").
		Find(&modelList).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending imported tickets: %w", err)
	}

	tickets := make([]*ticket.Ticket, 0, len(modelList))
	for i := range modelList {
		t, err := r.mapper.ToDomain(&modelList[i])
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

func activeStatusStrings() []string {
	out := make([]string, 0, len(ticket.ActiveStatuses))
	for _, s := range ticket.ActiveStatuses {
		out = append(out, s.String())
	}
	return out
}
