package repository_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ITH-Pros/ith-tea-pro-backend/internal/model"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/repository"
)

func TestTaskRepository_UpdateFields(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	taskRepo := repository.NewTaskRepository(gormDB)

	taskID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "tasks" SET .* WHERE id = .* AND is_deleted = .*`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Act
	err := taskRepo.UpdateFields(context.Background(), taskID, map[string]interface{}{
		"status": model.StatusOngoing,
	})

	// Assert
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_UpdateFields_NotFound(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	taskRepo := repository.NewTaskRepository(gormDB)

	taskID := uuid.New()

	// Zero rows affected means the task is absent or soft-deleted
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "tasks" SET .* WHERE id = .* AND is_deleted = .*`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	// Act
	err := taskRepo.UpdateFields(context.Background(), taskID, map[string]interface{}{
		"title": "New title",
	})

	// Assert
	assert.ErrorIs(t, err, repository.ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_SoftDelete(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	taskRepo := repository.NewTaskRepository(gormDB)

	taskID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "tasks" SET .*"is_deleted".* WHERE id = .*`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Act
	err := taskRepo.SoftDelete(context.Background(), taskID)

	// Assert
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_ReplaceLeads(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	taskRepo := repository.NewTaskRepository(gormDB)

	taskID := uuid.New()
	leadA, leadB := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM task_leads WHERE task_id = .*`).
		WithArgs(taskID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO task_leads`).
		WithArgs(taskID, leadA).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO task_leads`).
		WithArgs(taskID, leadB).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Act
	err := taskRepo.ReplaceLeads(context.Background(), taskID, []uuid.UUID{leadA, leadB})

	// Assert
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepository_AccessibleProjectIDs(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	projectRepo := repository.NewProjectRepository(gormDB)

	userID := uuid.New()
	first, second := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT DISTINCT p.id FROM projects p`).
		WithArgs(userID, userID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).
			AddRow(first.String()).
			AddRow(second.String()))

	// Act
	ids, err := projectRepo.AccessibleProjectIDs(context.Background(), userID)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first, second}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
