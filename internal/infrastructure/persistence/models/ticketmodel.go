package models

type TicketModel struct {
	ID        uint   `gorm:"primaryKey"`
	TenantID  uint   `gorm:"not null;index"`
	ContactID uint   `gorm:"not null;index:idx_ticket_contact_account"`
	AccountID uint   `gorm:"not null;index:idx_ticket_contact_account"`
	UserID    *uint  `gorm:"index"`
	Status    string `gorm:"size:20;not null;index"`

	LastMessage    string `gorm:"type:text"`
	UnreadMessages int    `gorm:"not null;default:0"`

	Imported *int64 `gorm:"index"`

	CreatedAt int64 `gorm:"autoCreateTime:milli;not null"`
	UpdatedAt int64 `gorm:"autoUpdateTime:milli;not null;index"`

	// Note: No foreign key constraints or associations.
	// All relationships are managed by application business logic.
}

func (TicketModel) TableName() string {
	return "tickets"
}
