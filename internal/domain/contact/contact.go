// Package contact models a messaging counterparty (person or group chat).
package contact

import (
	"fmt"
	"time"
)

type Contact struct {
	id         uint
	tenantID   uint
	name       string
	number     string
	isGroup    bool
	profilePic string
	createdAt  time.Time
	updatedAt  time.Time
}

func NewContact(tenantID uint, name, number string, isGroup bool) (*Contact, error) {
	if tenantID == 0 {
		return nil, fmt.Errorf("tenant ID is required")
	}
	if len(number) == 0 {
		return nil, fmt.Errorf("contact number is required")
	}

	now := time.Now()
	return &Contact{
		tenantID:  tenantID,
		name:      name,
		number:    number,
		isGroup:   isGroup,
		createdAt: now,
		updatedAt: now,
	}, nil
}

func ReconstructContact(
	id uint,
	tenantID uint,
	name string,
	number string,
	isGroup bool,
	profilePic string,
	createdAt, updatedAt time.Time,
) (*Contact, error) {
	if id == 0 {
		return nil, fmt.Errorf("contact ID cannot be zero")
	}
	return &Contact{
		id:         id,
		tenantID:   tenantID,
		name:       name,
		number:     number,
		isGroup:    isGroup,
		profilePic: profilePic,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}, nil
}

func (c *Contact) ID() uint            { return c.id }
func (c *Contact) TenantID() uint      { return c.tenantID }
func (c *Contact) Name() string        { return c.name }
func (c *Contact) Number() string      { return c.number }
func (c *Contact) IsGroup() bool       { return c.isGroup }
func (c *Contact) ProfilePic() string  { return c.profilePic }
func (c *Contact) CreatedAt() time.Time { return c.createdAt }
func (c *Contact) UpdatedAt() time.Time { return c.updatedAt }

func (c *Contact) SetID(id uint) error {
	if c.id != 0 {
		return fmt.Errorf("contact ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("contact ID cannot be zero")
	}
	c.id = id
	return nil
}

// UpdateProfilePic replaces the cached profile picture URL.
func (c *Contact) UpdateProfilePic(url string) {
	c.profilePic = url
	c.updatedAt = time.Now()
}
