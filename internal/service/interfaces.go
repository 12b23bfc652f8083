package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/ITH-Pros/ith-tea-pro-backend/internal/model"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/repository"
)

// Collaborator interfaces consumed by the services. The gorm
// repositories satisfy them; tests substitute in-memory fakes.

type TaskRepo interface {
	Create(ctx context.Context, task *model.Task, leadIDs []uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	Find(ctx context.Context, f repository.TaskFilter, sort repository.TaskSort) ([]model.Task, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	ReplaceLeads(ctx context.Context, taskID uuid.UUID, leadIDs []uuid.UUID) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type ProjectRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Project, error)
}

type UserRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error)
	ListDeletedIDs(ctx context.Context) ([]uuid.UUID, error)
}

type CommentRepo interface {
	Create(ctx context.Context, comment *model.Comment, taggedUserIDs []uuid.UUID) error
	ListForTask(ctx context.Context, taskID uuid.UUID, commentType *model.CommentType) ([]model.Comment, error)
}

type RatingRepo interface {
	Upsert(ctx context.Context, agg *model.RatingAggregate, taskID uuid.UUID) error
}

type RatingReader interface {
	ListForUser(ctx context.Context, userID uuid.UUID, year, month int) ([]model.RatingAggregate, error)
}

type AuditRepo interface {
	Append(ctx context.Context, entry *model.TaskLog) error
}

type AuditReader interface {
	ListForTask(ctx context.Context, taskID uuid.UUID) ([]model.TaskLog, error)
}
