package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ITH-Pros/ith-tea-pro-backend/internal/model"
)

type RatingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Upsert writes the aggregate keyed by (user, due date) and records the
// contributing task. The rating value is overwritten, never merged; the
// caller recomputes it from all rated siblings first.
func (r *RatingRepository) Upsert(ctx context.Context, agg *model.RatingAggregate, taskID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "due_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "updated_at"}),
		}).Omit("Tasks").Create(agg).Error
		if err != nil {
			return err
		}
		return tx.Exec(
			"INSERT INTO rating_tasks (rating_aggregate_id, task_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
			agg.ID, taskID,
		).Error
	})
}

// GetByUserAndDueDate retrieves the aggregate for one (user, due date)
// pair.
func (r *RatingRepository) GetByUserAndDueDate(ctx context.Context, userID uuid.UUID, dueDate time.Time) (*model.RatingAggregate, error) {
	var agg model.RatingAggregate
	result := r.db.WithContext(ctx).
		Preload("Tasks").
		First(&agg, "user_id = ? AND due_date = ?", userID, dueDate)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRatingNotFound
		}
		return nil, result.Error
	}
	return &agg, nil
}

// ListForUser lists a user's aggregates for a month, newest due date
// first.
func (r *RatingRepository) ListForUser(ctx context.Context, userID uuid.UUID, year, month int) ([]model.RatingAggregate, error) {
	var aggs []model.RatingAggregate
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND year = ? AND month = ?", userID, year, month).
		Order("due_date DESC").
		Find(&aggs)
	if result.Error != nil {
		return nil, result.Error
	}
	return aggs, nil
}
