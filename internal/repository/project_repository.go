package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ITH-Pros/ith-tea-pro-backend/internal/model"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// GetByID retrieves a project with its membership sets and sections.
// Soft-deleted projects are treated as absent.
func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var project model.Project
	result := r.db.WithContext(ctx).
		Preload("ManagedBy").
		Preload("AccessibleBy").
		Preload("Sections").
		First(&project, "id = ? AND is_deleted = ?", id, false)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, result.Error
	}
	return &project, nil
}

// AccessibleProjectIDs lists the active projects the user can see,
// whether as member or manager.
func (r *ProjectRepository) AccessibleProjectIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Raw(`
		SELECT DISTINCT p.id FROM projects p
		LEFT JOIN project_members m ON m.project_id = p.id
		LEFT JOIN project_managers g ON g.project_id = p.id
		WHERE p.is_deleted = FALSE AND p.is_active = TRUE
		  AND (m.user_id = ? OR g.user_id = ?)`,
		userID, userID,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
