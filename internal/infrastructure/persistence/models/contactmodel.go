package models

type ContactModel struct {
	ID         uint   `gorm:"primaryKey"`
	TenantID   uint   `gorm:"not null;index:idx_contact_tenant_number,unique"`
	Name       string `gorm:"size:100"`
	Number     string `gorm:"size:60;not null;index:idx_contact_tenant_number,unique"`
	IsGroup    bool   `gorm:"not null;default:false"`
	ProfilePic string `gorm:"size:512"`
	CreatedAt  int64  `gorm:"autoCreateTime:milli;not null"`
	UpdatedAt  int64  `gorm:"autoUpdateTime:milli;not null"`
}

func (ContactModel) TableName() string {
	return "contacts"
}
