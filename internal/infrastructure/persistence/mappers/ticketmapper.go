package mappers

import (
	"time"

	"atendo/internal/domain/ticket"
	"atendo/internal/infrastructure/persistence/models"
)

// TicketMapper handles the conversion between Ticket domain entities and persistence models.
type TicketMapper interface {
	ToModel(t *ticket.Ticket) *models.TicketModel
	ToDomain(model *models.TicketModel) (*ticket.Ticket, error)
}

// TicketMapperImpl is the concrete implementation of TicketMapper.
type TicketMapperImpl struct{}

// NewTicketMapper creates a new TicketMapper.
func NewTicketMapper() TicketMapper {
	return &TicketMapperImpl{}
}

func (m *TicketMapperImpl) ToModel(t *ticket.Ticket) *models.TicketModel {
	model := &models.TicketModel{
		ID:             t.ID(),
		TenantID:       t.TenantID(),
		ContactID:      t.ContactID(),
		AccountID:      t.AccountID(),
		UserID:         t.UserID(),
		Status:         t.Status().String(),
		LastMessage:    t.LastMessage(),
		UnreadMessages: t.UnreadMessages(),
		CreatedAt:      t.CreatedAt().UnixMilli(),
		UpdatedAt:      t.UpdatedAt().UnixMilli(),
	}

	if t.Imported() != nil {
		v := t.Imported().UnixMilli()
		model.Imported = &v
	}

	return model
}

func (m *TicketMapperImpl) ToDomain(model *models.TicketModel) (*ticket.Ticket, error) {
	status, err := ticket.NewStatus(model.Status)
	if err != nil {
		return nil, err
	}

	var imported *time.Time
	if model.Imported != nil {
		t := convertMillisToTime(*model.Imported)
		imported = &t
	}

	return ticket.ReconstructTicket(
		model.ID,
		model.TenantID,
		model.ContactID,
		model.AccountID,
		model.UserID,
		status,
		model.LastMessage,
		model.UnreadMessages,
		imported,
		convertMillisToTime(model.CreatedAt),
		convertMillisToTime(model.UpdatedAt),
	)
}
