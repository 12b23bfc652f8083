package model

import (
	"time"

	"github.com/google/uuid"
)

// Rating is the per-user per-due-date aggregate: the mean rating across
// all rated tasks sharing that due date for that user. The unique index
// over (user_id, due_date) backs the upsert.
type RatingAggregate struct {
	ID      uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	UserID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rating_user_duedate,priority:1"`
	Year    int       `gorm:"not null"`
	Month   int       `gorm:"not null"`
	Date    int       `gorm:"not null"`
	DueDate time.Time `gorm:"not null;uniqueIndex:idx_rating_user_duedate,priority:2"`
	Rating  float64   `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// Tasks that contributed to the mean.
	Tasks []Task `gorm:"many2many:rating_tasks"`
}
