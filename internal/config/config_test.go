package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ITH-Pros/ith-tea-pro-backend/internal/config"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/model"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("TASK_STATUS")
	os.Unsetenv("RATING_GRACE_HOURS")
	os.Unsetenv("ROLE_PRIORITIES")

	cfg := config.Load()

	assert.Equal(t, model.StatusNotStarted, cfg.DefaultStatus())
	assert.True(t, cfg.IsValidStatus(model.StatusCompleted))
	assert.False(t, cfg.IsValidStatus(model.TaskStatus("SHIPPED")))
	assert.Equal(t, 18, cfg.RatingGraceHours)
	assert.True(t, cfg.IsAllowedGroupBy("assignedTo"))
	assert.False(t, cfg.IsAllowedGroupBy("favoriteColor"))
	assert.True(t, cfg.IsAllowedSortBy("due-date"))
	assert.True(t, cfg.IsAllowedSortBy("due-date-desc"))

	rank, err := cfg.Roles.PriorityOf(model.RoleSuperAdmin)
	assert.NoError(t, err)
	assert.Equal(t, 6, rank)
}

func TestLoad_CustomStatusList(t *testing.T) {
	os.Setenv("TASK_STATUS", "QUEUED,ACTIVE,COMPLETED")
	defer os.Unsetenv("TASK_STATUS")

	cfg := config.Load()

	assert.Equal(t, model.TaskStatus("QUEUED"), cfg.DefaultStatus())
	assert.True(t, cfg.IsValidStatus(model.TaskStatus("ACTIVE")))
	assert.False(t, cfg.IsValidStatus(model.StatusOngoing))
}

func TestLoad_CustomRolePriorities(t *testing.T) {
	os.Setenv("ROLE_PRIORITIES", "SUPER_ADMIN:10,ADMIN:8,LEAD:6,CONTRIBUTOR:4,INTERN:2,GUEST:1")
	defer os.Unsetenv("ROLE_PRIORITIES")

	cfg := config.Load()

	rank, err := cfg.Roles.PriorityOf(model.RoleAdmin)
	assert.NoError(t, err)
	assert.Equal(t, 8, rank)
}

func TestLoad_MalformedRolePrioritiesFallsBack(t *testing.T) {
	os.Setenv("ROLE_PRIORITIES", "SUPER_ADMIN=oops")
	defer os.Unsetenv("ROLE_PRIORITIES")

	cfg := config.Load()

	rank, err := cfg.Roles.PriorityOf(model.RoleGuest)
	assert.NoError(t, err)
	assert.Equal(t, 1, rank)
}
