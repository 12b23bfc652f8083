package model

import (
	"time"

	"github.com/google/uuid"
)

type Project struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Name        string    `gorm:"not null"`
	Description string
	ColorCode   string
	IsActive    bool `gorm:"not null;default:true"`
	IsArchived  bool `gorm:"not null;default:false"`
	IsDeleted   bool `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// ManagedBy holds lead/manager users, AccessibleBy plain members.
	ManagedBy    []User    `gorm:"many2many:project_managers"`
	AccessibleBy []User    `gorm:"many2many:project_members"`
	Sections     []Section `gorm:"foreignKey:ProjectID"`
}

// HasMember reports whether the user appears in either membership set.
func (p *Project) HasMember(userID uuid.UUID) bool {
	for _, u := range p.AccessibleBy {
		if u.ID == userID {
			return true
		}
	}
	return p.HasManager(userID)
}

// HasManager reports whether the user is in the managedBy set.
func (p *Project) HasManager(userID uuid.UUID) bool {
	for _, u := range p.ManagedBy {
		if u.ID == userID {
			return true
		}
	}
	return false
}

type Section struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	ProjectID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Name       string    `gorm:"not null"`
	IsArchived bool      `gorm:"not null;default:false"`
	CreatedAt  time.Time
}
