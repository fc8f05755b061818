package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"atendo/internal/domain/account"
	"atendo/internal/infrastructure/persistence/mappers"
	"atendo/internal/infrastructure/persistence/models"
	db "atendo/internal/shared/db"
	apperrors "atendo/internal/shared/errors"
)

type AccountRepository struct {
	db     *gorm.DB
	mapper mappers.AccountMapper
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{
		db:     db,
		mapper: mappers.NewAccountMapper(),
	}
}

func (r *AccountRepository) FindByID(ctx context.Context, id uint) (*account.Account, error) {
	var model models.AccountModel
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NewNotFoundError("account not found", fmt.Sprintf("id %d", id))
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	return r.mapper.ToDomain(&model)
}

func (r *AccountRepository) FindAllByTenant(ctx context.Context, tenantID uint) ([]*account.Account, error) {
	var modelList []models.AccountModel
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.
		Where("tenant_id = ?", tenantID).
		Find(&modelList).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	return r.toDomainList(modelList)
}

func (r *AccountRepository) FindPendingTicketClose(ctx context.Context) ([]*account.Account, error) {
	var modelList []models.AccountModel
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.
		Where("status_import_messages = ?", account.ImportStatusPendingClose).
		Find(&modelList).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts pending ticket close: %w", err)
	}

	return r.toDomainList(modelList)
}

func (r *AccountRepository) FindResumable(ctx context.Context) ([]*account.Account, error) {
	var modelList []models.AccountModel
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.
		Where("status IN ?", []string{
			account.StatusConnected.String(),
			account.StatusOpening.String(),
			account.StatusQRCode.String(),
		}).
		Find(&modelList).Error; err != nil {
		return nil, fmt.Errorf("failed to list resumable accounts: %w", err)
	}

	return r.toDomainList(modelList)
}

func (r *AccountRepository) Save(ctx context.Context, acc *account.Account) error {
	model := r.mapper.ToModel(acc)
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.Create(model).Error; err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}

	if err := acc.SetID(model.ID); err != nil {
		return err
	}

	return nil
}

func (r *AccountRepository) Update(ctx context.Context, acc *account.Account) error {
	model := r.mapper.ToModel(acc)
	tx := db.GetTxFromContext(ctx, r.db)

	result := tx.
		Model(&models.AccountModel{}).
		Where("id = ?", model.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(model)

	if result.Error != nil {
		return fmt.Errorf("failed to update account: %w", result.Error)
	}

	// Note: RowsAffected may be 0 when updated values are identical to existing values.

	return nil
}

func (r *AccountRepository) toDomainList(modelList []models.AccountModel) ([]*account.Account, error) {
	accounts := make([]*account.Account, 0, len(modelList))
	for i := range modelList {
		acc, err := r.mapper.ToDomain(&modelList[i])
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}
