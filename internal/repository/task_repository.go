package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ITH-Pros/ith-tea-pro-backend/internal/model"
)

// TaskSort selects the ordering of a task listing.
type TaskSort int

const (
	// SortDefault orders by project, then section, then due date.
	SortDefault TaskSort = iota
	SortDueDateAsc
	SortDueDateDesc
)

// TaskFilter is the composable filter for task listings. Zero-value
// fields are skipped. Soft-deleted tasks and tasks of soft-deleted
// projects are always excluded; archived projects are excluded unless
// Archived explicitly asks for them.
type TaskFilter struct {
	IDs         []uuid.UUID
	ProjectIDs  []uuid.UUID
	SectionIDs  []uuid.UUID
	AssigneeIDs []uuid.UUID
	CreatorIDs  []uuid.UUID
	LeadIDs     []uuid.UUID
	Statuses    []model.TaskStatus
	NotStatuses []model.TaskStatus
	Priorities  []string

	DueDate *time.Time
	DueFrom *time.Time
	DueTo   *time.Time

	Archived   *bool
	Rated      *bool
	DelayRated *bool

	// ParticipantID restricts to tasks created by or assigned to the
	// given user ("only mine").
	ParticipantID *uuid.UUID

	// InvolvedID widens ParticipantID to also match tasks the user
	// leads.
	InvolvedID *uuid.UUID

	// ExcludeUserIDs drops tasks assigned to or created by any of the
	// given identities (deleted users, for non-admin callers).
	ExcludeUserIDs []uuid.UUID
}

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts the task and its lead set in one transaction.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task, leadIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Leads", "Comments", "Assignee", "Creator", "Section", "Project").Create(task).Error; err != nil {
			return err
		}
		for _, leadID := range leadIDs {
			if err := tx.Exec(
				"INSERT INTO task_leads (task_id, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
				task.ID, leadID,
			).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID retrieves a task with its relations. Soft-deleted tasks are
// treated as absent.
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	result := r.db.WithContext(ctx).
		Preload("Leads").
		Preload("Assignee").
		Preload("Creator").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_at ASC")
		}).
		First(&task, "id = ? AND is_deleted = ?", id, false)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, result.Error
	}
	return &task, nil
}

// Find lists tasks matching the filter in the requested order.
func (r *TaskRepository) Find(ctx context.Context, f TaskFilter, sort TaskSort) ([]model.Task, error) {
	q := r.db.WithContext(ctx).Model(&model.Task{}).
		Joins("JOIN projects ON projects.id = tasks.project_id").
		Where("tasks.is_deleted = ?", false).
		Where("projects.is_deleted = ?", false)

	if f.Archived != nil {
		q = q.Where("projects.is_archived = ?", *f.Archived)
	} else {
		q = q.Where("projects.is_archived = ?", false)
	}

	if len(f.IDs) > 0 {
		q = q.Where("tasks.id IN ?", f.IDs)
	}
	if len(f.ProjectIDs) > 0 {
		q = q.Where("tasks.project_id IN ?", f.ProjectIDs)
	}
	if len(f.SectionIDs) > 0 {
		q = q.Where("tasks.section_id IN ?", f.SectionIDs)
	}
	if len(f.AssigneeIDs) > 0 {
		q = q.Where("tasks.assigned_to IN ?", f.AssigneeIDs)
	}
	if len(f.CreatorIDs) > 0 {
		q = q.Where("tasks.created_by IN ?", f.CreatorIDs)
	}
	if len(f.LeadIDs) > 0 {
		q = q.Joins("JOIN task_leads ON task_leads.task_id = tasks.id").
			Where("task_leads.user_id IN ?", f.LeadIDs).
			Distinct("tasks.*")
	}
	if len(f.Statuses) > 0 {
		q = q.Where("tasks.status IN ?", f.Statuses)
	}
	if len(f.NotStatuses) > 0 {
		q = q.Where("tasks.status NOT IN ?", f.NotStatuses)
	}
	if len(f.Priorities) > 0 {
		q = q.Where("tasks.priority IN ?", f.Priorities)
	}
	if f.DueDate != nil {
		q = q.Where("tasks.due_date = ?", *f.DueDate)
	}
	if f.DueFrom != nil {
		q = q.Where("tasks.due_date >= ?", *f.DueFrom)
	}
	if f.DueTo != nil {
		q = q.Where("tasks.due_date <= ?", *f.DueTo)
	}
	if f.Rated != nil {
		q = q.Where("tasks.is_rated = ?", *f.Rated)
	}
	if f.DelayRated != nil {
		q = q.Where("tasks.is_delay_rated = ?", *f.DelayRated)
	}
	if f.ParticipantID != nil {
		q = q.Where("tasks.created_by = ? OR tasks.assigned_to = ?", *f.ParticipantID, *f.ParticipantID)
	}
	if f.InvolvedID != nil {
		q = q.Where(
			"tasks.created_by = ? OR tasks.assigned_to = ? OR EXISTS (SELECT 1 FROM task_leads WHERE task_leads.task_id = tasks.id AND task_leads.user_id = ?)",
			*f.InvolvedID, *f.InvolvedID, *f.InvolvedID,
		)
	}
	if len(f.ExcludeUserIDs) > 0 {
		q = q.Where("tasks.assigned_to IS NULL OR tasks.assigned_to NOT IN ?", f.ExcludeUserIDs).
			Where("tasks.created_by NOT IN ?", f.ExcludeUserIDs)
	}

	switch sort {
	case SortDueDateAsc:
		q = q.Order("tasks.due_date ASC")
	case SortDueDateDesc:
		q = q.Order("tasks.due_date DESC")
	default:
		q = q.Order("tasks.project_id ASC, tasks.section_id ASC, tasks.due_date ASC")
	}

	var tasks []model.Task
	result := q.
		Preload("Leads").
		Preload("Assignee").
		Preload("Creator").
		Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

// UpdateFields applies a partial update; omitted columns keep their
// previous values.
func (r *TaskRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// ReplaceLeads swaps the task's lead set for the given one.
func (r *TaskRepository) ReplaceLeads(ctx context.Context, taskID uuid.UUID, leadIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM task_leads WHERE task_id = ?", taskID).Error; err != nil {
			return err
		}
		for _, leadID := range leadIDs {
			if err := tx.Exec(
				"INSERT INTO task_leads (task_id, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
				taskID, leadID,
			).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SoftDelete flags the task as deleted; rows are never physically
// removed.
func (r *TaskRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.UpdateFields(ctx, id, map[string]interface{}{"is_deleted": true})
}
