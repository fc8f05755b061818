package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"atendo/internal/domain/message"
	"atendo/internal/infrastructure/persistence/mappers"
	"atendo/internal/infrastructure/persistence/models"
	db "atendo/internal/shared/db"
)

type MessageRepository struct {
	db     *gorm.DB
	mapper mappers.MessageMapper
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{
		db:     db,
		mapper: mappers.NewMessageMapper(),
	}
}

func (r *MessageRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.
		Model(&models.MessageModel{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check message existence: %w", err)
	}

	return count > 0, nil
}

func (r *MessageRepository) Save(ctx context.Context, m *message.Message) error {
	model := r.mapper.ToModel(m)
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.Create(model).Error; err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	return nil
}
