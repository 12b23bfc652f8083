package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ITH-Pros/ith-tea-pro-backend/internal/model"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create inserts the comment and its tagged-user set in one
// transaction.
func (r *CommentRepository) Create(ctx context.Context, comment *model.Comment, taggedUserIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("TaggedUsers", "Author").Create(comment).Error; err != nil {
			return err
		}
		for _, userID := range taggedUserIDs {
			if err := tx.Exec(
				"INSERT INTO comment_tagged_users (comment_id, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
				comment.ID, userID,
			).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ListForTask retrieves a task's comments oldest first, optionally
// restricted to one type.
func (r *CommentRepository) ListForTask(ctx context.Context, taskID uuid.UUID, commentType *model.CommentType) ([]model.Comment, error) {
	q := r.db.WithContext(ctx).
		Preload("Author").
		Where("task_id = ?", taskID).
		Order("created_at ASC")
	if commentType != nil {
		q = q.Where("type = ?", *commentType)
	}
	var comments []model.Comment
	if err := q.Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}
