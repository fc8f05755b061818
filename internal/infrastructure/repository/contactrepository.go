package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"atendo/internal/domain/contact"
	"atendo/internal/infrastructure/persistence/mappers"
	"atendo/internal/infrastructure/persistence/models"
	db "atendo/internal/shared/db"
)

type ContactRepository struct {
	db     *gorm.DB
	mapper mappers.ContactMapper
}

func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{
		db:     db,
		mapper: mappers.NewContactMapper(),
	}
}

func (r *ContactRepository) FindByID(ctx context.Context, id uint) (*contact.Contact, error) {
	var model models.ContactModel
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("contact not found")
		}
		return nil, fmt.Errorf("failed to find contact: %w", err)
	}

	return r.mapper.ToDomain(&model)
}

// FindByNumber returns nil when no contact exists; the ingestion path creates
// one in that case.
func (r *ContactRepository) FindByNumber(ctx context.Context, tenantID uint, number string) (*contact.Contact, error) {
	var model models.ContactModel
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.
		Where("tenant_id = ? AND number = ?", tenantID, number).
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find contact: %w", err)
	}

	return r.mapper.ToDomain(&model)
}

func (r *ContactRepository) Save(ctx context.Context, c *contact.Contact) error {
	model := r.mapper.ToModel(c)
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.Create(model).Error; err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}

	if err := c.SetID(model.ID); err != nil {
		return err
	}

	return nil
}

func (r *ContactRepository) Update(ctx context.Context, c *contact.Contact) error {
	model := r.mapper.ToModel(c)
	tx := db.GetTxFromContext(ctx, r.db)

	result := tx.
		Model(&models.ContactModel{}).
		Where("id = ?", model.ID).
		Updates(model)

	if result.Error != nil {
		return fmt.Errorf("failed to update contact: %w", result.Error)
	}

	return nil
}
