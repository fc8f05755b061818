package models

import "gorm.io/datatypes"

// MessageModel uses the transport-side message id as primary key; inserting a
// replayed message fails on the key, which backs the ingestion idempotency.
type MessageModel struct {
	ID        string         `gorm:"primaryKey;size:128"`
	TenantID  uint           `gorm:"not null;index"`
	TicketID  uint           `gorm:"not null;index"`
	ContactID uint           `gorm:"not null;index"`
	Body      string         `gorm:"type:text"`
	Payload   datatypes.JSON `gorm:"type:json"`
	FromMe    bool           `gorm:"not null;default:false"`
	Read      bool           `gorm:"not null;default:false"`
	Imported  bool           `gorm:"not null;default:false"`
	Timestamp int64          `gorm:"not null;index"`
	CreatedAt int64          `gorm:"autoCreateTime:milli;not null"`
}

func (MessageModel) TableName() string {
	return "messages"
}
