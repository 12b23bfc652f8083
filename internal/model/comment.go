package model

import (
	"time"

	"github.com/google/uuid"
)

type CommentType string

const (
	CommentTypeTask   CommentType = "TASK"
	CommentTypeRating CommentType = "RATING"
)

type Comment struct {
	ID          uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	TaskID      uuid.UUID   `gorm:"type:uuid;not null;index"`
	CommentedBy uuid.UUID   `gorm:"type:uuid;not null"`
	Text        string      `gorm:"column:comment;not null"`
	Type        CommentType `gorm:"not null;default:TASK;index"`
	CreatedAt   time.Time

	Author      User   `gorm:"foreignKey:CommentedBy"`
	TaggedUsers []User `gorm:"many2many:comment_tagged_users"`
}
