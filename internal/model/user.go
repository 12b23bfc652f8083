package model

import (
	"time"

	"github.com/google/uuid"
)

// Role ranks users for authorization decisions. Priorities live in the
// authz role table, not here.
type Role string

const (
	RoleSuperAdmin  Role = "SUPER_ADMIN"
	RoleAdmin       Role = "ADMIN"
	RoleLead        Role = "LEAD"
	RoleContributor Role = "CONTRIBUTOR"
	RoleIntern      Role = "INTERN"
	RoleGuest       Role = "GUEST"
)

type User struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Email          string    `gorm:"uniqueIndex;not null"`
	HashedPassword string    `gorm:"not null"`
	Name           string    `gorm:"not null"`
	Role           Role      `gorm:"not null;default:CONTRIBUTOR"`
	ProfilePicture string
	IsDeleted      bool      `gorm:"not null;default:false;index"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}
