package mappers

import (
	"gorm.io/datatypes"

	"atendo/internal/domain/message"
	"atendo/internal/infrastructure/persistence/models"
)

// MessageMapper handles the conversion between Message domain entities and persistence models.
type MessageMapper interface {
	ToModel(m *message.Message) *models.MessageModel
	ToDomain(model *models.MessageModel) *message.Message
}

// MessageMapperImpl is the concrete implementation of MessageMapper.
type MessageMapperImpl struct{}

// NewMessageMapper creates a new MessageMapper.
func NewMessageMapper() MessageMapper {
	return &MessageMapperImpl{}
}

func (mp *MessageMapperImpl) ToModel(m *message.Message) *models.MessageModel {
	return &models.MessageModel{
		ID:        m.ID(),
		TenantID:  m.TenantID(),
		TicketID:  m.TicketID(),
		ContactID: m.ContactID(),
		Body:      m.Body(),
		Payload:   datatypes.JSON(m.Payload()),
		FromMe:    m.FromMe(),
		Read:      m.Read(),
		Imported:  m.Imported(),
		Timestamp: m.Timestamp().UnixMilli(),
		CreatedAt: m.CreatedAt().UnixMilli(),
	}
}

func (mp *MessageMapperImpl) ToDomain(model *models.MessageModel) *message.Message {
	return message.ReconstructMessage(
		model.ID,
		model.TenantID,
		model.TicketID,
		model.ContactID,
		model.Body,
		[]byte(model.Payload),
		model.FromMe,
		model.Read,
		model.Imported,
		convertMillisToTime(model.Timestamp),
		convertMillisToTime(model.CreatedAt),
	)
}
