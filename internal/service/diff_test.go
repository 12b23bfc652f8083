package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ITH-Pros/ith-tea-pro-backend/internal/model"
)

func strPtr(s string) *string { return &s }

func TestDiffTask_OnlyChangedFields(t *testing.T) {
	due := time.Date(2024, 5, 20, 18, 0, 0, 0, time.UTC)
	prev := &model.Task{
		Title:   "Old title",
		Status:  model.StatusNotStarted,
		DueDate: &due,
	}

	st := model.StatusOngoing
	d := diffTask(prev, TaskPatch{
		Title:   strPtr("Old title"), // unchanged, must not appear
		Status:  &st,
		DueDate: &due, // same instant, must not appear
	})

	require.Len(t, d, 1)
	assert.Equal(t, model.StatusNotStarted, d["status"].Previous)
	assert.Equal(t, model.StatusOngoing, d["status"].New)
}

func TestDiffTask_ClearDueDate(t *testing.T) {
	due := time.Date(2024, 5, 20, 18, 0, 0, 0, time.UTC)
	prev := &model.Task{Title: "t", DueDate: &due}

	d := diffTask(prev, TaskPatch{ClearDueDate: true})

	require.Contains(t, d, "dueDate")
	assert.Equal(t, due, d["dueDate"].Previous)
	assert.Nil(t, d["dueDate"].New)

	// clearing an already absent due date is not a change
	d = diffTask(&model.Task{Title: "t"}, TaskPatch{ClearDueDate: true})
	assert.NotContains(t, d, "dueDate")
}

func TestAuditAction_Precedence(t *testing.T) {
	statusAndDue := TaskDiff{
		"status":  {Previous: "a", New: "b"},
		"dueDate": {Previous: "x", New: "y"},
		"title":   {Previous: "p", New: "q"},
	}
	assert.Equal(t, model.ActionTaskStatusUpdated, statusAndDue.auditAction())

	dueOnly := TaskDiff{
		"dueDate": {Previous: "x", New: "y"},
		"title":   {Previous: "p", New: "q"},
	}
	assert.Equal(t, model.ActionTaskDueDateUpdate, dueOnly.auditAction())

	titleOnly := TaskDiff{"title": {Previous: "p", New: "q"}}
	assert.Equal(t, model.ActionTaskUpdated, titleOnly.auditAction())
}

func TestTaskDiff_SideJSON(t *testing.T) {
	d := TaskDiff{
		"title": {Previous: "old", New: "new"},
	}

	var prev map[string]interface{}
	require.NoError(t, json.Unmarshal(d.previousJSON(), &prev))
	assert.Equal(t, "old", prev["title"])

	var next map[string]interface{}
	require.NoError(t, json.Unmarshal(d.newJSON(), &next))
	assert.Equal(t, "new", next["title"])

	assert.Nil(t, TaskDiff{}.previousJSON())
}

func TestTaskPatch_Fields(t *testing.T) {
	sectionID := uuid.New()
	st := model.StatusOnHold

	fields := TaskPatch{
		Title:     strPtr("Renamed"),
		SectionID: &sectionID,
		Status:    &st,
	}.fields()

	assert.Equal(t, "Renamed", fields["title"])
	assert.Equal(t, sectionID, fields["section_id"])
	assert.Equal(t, st, fields["status"])
	assert.NotContains(t, fields, "description")
	assert.NotContains(t, fields, "due_date")

	cleared := TaskPatch{ClearDueDate: true}.fields()
	require.Contains(t, cleared, "due_date")
	assert.Nil(t, cleared["due_date"])
}
