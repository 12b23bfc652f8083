package model

import (
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	StatusNotStarted TaskStatus = "NOT_STARTED"
	StatusOngoing    TaskStatus = "ONGOING"
	StatusOnHold     TaskStatus = "ONHOLD"
	StatusCompleted  TaskStatus = "COMPLETED"
)

// Rating bounds for a rated task; 0 means unset.
const (
	MinRating = 1
	MaxRating = 6
)

type Task struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Title       string     `gorm:"not null"`
	Description string
	Status      TaskStatus `gorm:"not null;default:NOT_STARTED;index"`
	SectionID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProjectID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	CreatedBy   uuid.UUID  `gorm:"type:uuid;not null;index"`
	AssignedTo  *uuid.UUID `gorm:"type:uuid;index"`
	DueDate     *time.Time `gorm:"index"`

	CompletedDate *time.Time
	Priority      string
	Attachments   []string `gorm:"serializer:json;type:jsonb"`

	IsDeleted    bool `gorm:"not null;default:false;index"`
	IsRated      bool `gorm:"not null;default:false"`
	Rating       int  `gorm:"not null;default:0"`
	RatedBy      *uuid.UUID `gorm:"type:uuid"`
	IsDelayTask  bool `gorm:"not null;default:false"`
	IsDelayRated bool `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Section  Section   `gorm:"foreignKey:SectionID"`
	Project  Project   `gorm:"foreignKey:ProjectID"`
	Creator  User      `gorm:"foreignKey:CreatedBy"`
	Assignee *User     `gorm:"foreignKey:AssignedTo"`
	Leads    []User    `gorm:"many2many:task_leads"`
	Comments []Comment `gorm:"foreignKey:TaskID"`
}

// HasLead reports whether the user is in the task's lead set.
func (t *Task) HasLead(userID uuid.UUID) bool {
	for _, u := range t.Leads {
		if u.ID == userID {
			return true
		}
	}
	return false
}

func (t *Task) LeadIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(t.Leads))
	for _, u := range t.Leads {
		ids = append(ids, u.ID)
	}
	return ids
}

// IsAssignedTo reports whether the task is assigned to the given user.
func (t *Task) IsAssignedTo(userID uuid.UUID) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

// IsParticipant reports whether the user is the creator, assignee or a
// lead of the task.
func (t *Task) IsParticipant(userID uuid.UUID) bool {
	return t.CreatedBy == userID || t.IsAssignedTo(userID) || t.HasLead(userID)
}

// CommentsOfType filters the loaded comments by type, oldest first.
func (t *Task) CommentsOfType(ct CommentType) []Comment {
	var out []Comment
	for _, c := range t.Comments {
		if c.Type == ct {
			out = append(out, c)
		}
	}
	return out
}
