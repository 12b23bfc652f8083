package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ITH-Pros/ith-tea-pro-backend/internal/model"
)

type TaskLogRepository struct {
	db *gorm.DB
}

func NewTaskLogRepository(db *gorm.DB) *TaskLogRepository {
	return &TaskLogRepository{db: db}
}

// Append writes one audit entry.
func (r *TaskLogRepository) Append(ctx context.Context, entry *model.TaskLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListForTask retrieves a task's audit trail, newest first.
func (r *TaskLogRepository) ListForTask(ctx context.Context, taskID uuid.UUID) ([]model.TaskLog, error) {
	var entries []model.TaskLog
	result := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at DESC").
		Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}
	return entries, nil
}
