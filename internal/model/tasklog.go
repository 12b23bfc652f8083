package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Audit actions recorded against task mutations.
const (
	ActionTaskAdded         = "TASK_ADDED"
	ActionTaskUpdated       = "TASK_UPDATED"
	ActionTaskStatusUpdated = "TASK_STATUS_UPDATED"
	ActionTaskDueDateUpdate = "TASK_DUEDATE_UPDATED"
	ActionTaskDeleted       = "TASK_DELETED"
	ActionTaskComment       = "TASK_COMMENT"
	ActionRateTask          = "RATE_TASK"
)

// TaskLog is one audit entry. Previous/New carry the changed-field pairs
// of an edit as JSON objects; both are empty for non-edit actions.
type TaskLog struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	ActionTaken string     `gorm:"not null;index"`
	ActionBy    uuid.UUID  `gorm:"type:uuid;not null"`
	TaskID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	UserID      *uuid.UUID `gorm:"type:uuid"`
	RatingID    *uuid.UUID `gorm:"type:uuid"`
	CommentID   *uuid.UUID `gorm:"type:uuid"`

	Previous json.RawMessage `gorm:"type:jsonb"`
	New      json.RawMessage `gorm:"type:jsonb"`

	CreatedAt time.Time
}
