package mappers

import (
	"atendo/internal/domain/contact"
	"atendo/internal/infrastructure/persistence/models"
)

// ContactMapper handles the conversion between Contact domain entities and persistence models.
type ContactMapper interface {
	ToModel(c *contact.Contact) *models.ContactModel
	ToDomain(model *models.ContactModel) (*contact.Contact, error)
}

// ContactMapperImpl is the concrete implementation of ContactMapper.
type ContactMapperImpl struct{}

// NewContactMapper creates a new ContactMapper.
func NewContactMapper() ContactMapper {
	return &ContactMapperImpl{}
}

func (m *ContactMapperImpl) ToModel(c *contact.Contact) *models.ContactModel {
	return &models.ContactModel{
		ID:         c.ID(),
		TenantID:   c.TenantID(),
		Name:       c.Name(),
		Number:     c.Number(),
		IsGroup:    c.IsGroup(),
		ProfilePic: c.ProfilePic(),
		CreatedAt:  c.CreatedAt().UnixMilli(),
		UpdatedAt:  c.UpdatedAt().UnixMilli(),
	}
}

func (m *ContactMapperImpl) ToDomain(model *models.ContactModel) (*contact.Contact, error) {
	return contact.ReconstructContact(
		model.ID,
		model.TenantID,
		model.Name,
		model.Number,
		model.IsGroup,
		model.ProfilePic,
		convertMillisToTime(model.CreatedAt),
		convertMillisToTime(model.UpdatedAt),
	)
}
