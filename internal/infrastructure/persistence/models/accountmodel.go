package models

type AccountModel struct {
	ID       uint   `gorm:"primaryKey"`
	TenantID uint   `gorm:"not null;index"`
	Name     string `gorm:"size:100;not null"`
	Status   string `gorm:"size:20;not null;index"`
	Number   string `gorm:"size:30"`
	QRCode   string `gorm:"type:text"`

	ImportOldMessages    *int64
	ImportRecentMessages *int64
	ImportGroupMessages  bool   `gorm:"not null;default:false"`
	StatusImportMessages string `gorm:"size:50"`

	ClosedTicketsPostImported bool `gorm:"not null;default:false"`
	AllowGroup                bool `gorm:"not null;default:false"`

	CreatedAt int64 `gorm:"autoCreateTime:milli;not null"`
	UpdatedAt int64 `gorm:"autoUpdateTime:milli;not null"`

	// Note: No foreign key constraints or associations.
	// All relationships are managed by application business logic.
}

func (AccountModel) TableName() string {
	return "whatsapp_accounts"
}
