package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ITH-Pros/ith-tea-pro-backend/internal/apperr"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/authz"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/model"
)

type queryFixture struct {
	*fixture
	queries *QueryService
}

func newQueryFixture(t *testing.T) *queryFixture {
	fx := newFixture(t)
	q := NewQueryService(
		fx.cfg,
		fx.store,
		projectRepoAdapter{fx.store},
		userRepoAdapter{fx.store},
		commentRepoAdapter{fx.store},
		auditReaderAdapter{fx.store},
		ratingReaderAdapter{fx.store},
	)
	q.now = fx.svc.now
	return &queryFixture{fixture: fx, queries: q}
}

type auditReaderAdapter struct{ *fakeStore }

func (a auditReaderAdapter) ListForTask(ctx context.Context, taskID uuid.UUID) ([]model.TaskLog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []model.TaskLog
	for _, entry := range a.logs {
		if entry.TaskID == taskID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type ratingReaderAdapter struct{ *fakeStore }

func (a ratingReaderAdapter) ListForUser(ctx context.Context, userID uuid.UUID, year, month int) ([]model.RatingAggregate, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []model.RatingAggregate
	for _, agg := range a.aggregates {
		if agg.UserID == userID && agg.Year == year && agg.Month == month {
			out = append(out, *agg)
		}
	}
	return out, nil
}

func TestGroupedTasks_ByStatusWithCounts(t *testing.T) {
	fx := newQueryFixture(t)
	due := fx.now.AddDate(0, 0, 1)
	first := fx.createTask(t, fx.lead, &due)
	fx.createTask(t, fx.lead, &due)
	third := fx.createTask(t, fx.lead, &due)

	_, err := fx.svc.UpdateStatus(context.Background(), fx.contributor, first.ID, model.StatusOngoing)
	require.NoError(t, err)
	_, err = fx.svc.UpdateStatus(context.Background(), fx.contributor, third.ID, model.StatusOngoing)
	require.NoError(t, err)

	groups, err := fx.queries.GroupedTasks(context.Background(), fx.lead, ListInput{GroupBy: "status"})

	require.NoError(t, err)
	byKey := map[string]TaskGroup{}
	for _, g := range groups {
		byKey[g.Key] = g
	}
	assert.Equal(t, 2, byKey["ONGOING"].Total)
	assert.Equal(t, 1, byKey["NOT_STARTED"].Total)
	assert.Equal(t, 2, byKey["ONGOING"].StatusCounts[model.StatusOngoing])
}

func TestGroupedTasks_UnknownGroupByRejected(t *testing.T) {
	fx := newQueryFixture(t)

	_, err := fx.queries.GroupedTasks(context.Background(), fx.lead, ListInput{GroupBy: "favoriteColor"})

	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestGroupedTasks_ScopedToMemberProjects(t *testing.T) {
	fx := newQueryFixture(t)
	due := fx.now.AddDate(0, 0, 1)
	fx.createTask(t, fx.lead, &due)

	// a second project the lead does not belong to
	foreignProject := &model.Project{ID: uuid.New(), Name: "Other", IsActive: true}
	fx.store.projects[foreignProject.ID] = foreignProject
	foreignTask := &model.Task{
		ID:        uuid.New(),
		Title:     "Out of reach",
		ProjectID: foreignProject.ID,
		CreatedBy: fx.superAdmin.ID,
		Status:    model.StatusNotStarted,
	}
	fx.store.tasks[foreignTask.ID] = foreignTask

	groups, err := fx.queries.GroupedTasks(context.Background(), fx.lead, ListInput{})
	require.NoError(t, err)
	total := 0
	for _, g := range groups {
		total += g.Total
	}
	assert.Equal(t, 1, total)

	// asking for the foreign project directly is refused
	_, err = fx.queries.GroupedTasks(context.Background(), fx.lead, ListInput{
		ProjectIDs: []uuid.UUID{foreignProject.ID},
	})
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	// super admin sees both
	groups, err = fx.queries.GroupedTasks(context.Background(), fx.superAdmin, ListInput{})
	require.NoError(t, err)
	total = 0
	for _, g := range groups {
		total += g.Total
	}
	assert.Equal(t, 2, total)
}

func TestGroupedTasks_DeletedUserTasksHiddenFromNonAdmins(t *testing.T) {
	fx := newQueryFixture(t)
	due := fx.now.AddDate(0, 0, 1)
	fx.createTask(t, fx.lead, &due)

	ghostID := uuid.New()
	fx.store.users[ghostID] = &model.User{ID: ghostID, Role: model.RoleContributor, IsDeleted: true}
	ghostTask := &model.Task{
		ID:        uuid.New(),
		Title:     "Orphaned",
		ProjectID: fx.project.ID,
		CreatedBy: ghostID,
		Status:    model.StatusNotStarted,
	}
	fx.store.tasks[ghostTask.ID] = ghostTask

	leadGroups, err := fx.queries.GroupedTasks(context.Background(), fx.lead, ListInput{})
	require.NoError(t, err)
	leadTotal := 0
	for _, g := range leadGroups {
		leadTotal += g.Total
	}
	assert.Equal(t, 1, leadTotal)

	adminGroups, err := fx.queries.GroupedTasks(context.Background(), fx.admin, ListInput{})
	require.NoError(t, err)
	adminTotal := 0
	for _, g := range adminGroups {
		adminTotal += g.Total
	}
	assert.Equal(t, 2, adminTotal)
}

func TestGroupedTasks_RatedFilter(t *testing.T) {
	fx := newQueryFixture(t)
	due := fx.now.AddDate(0, 0, 1)
	rated := fx.createTask(t, fx.lead, &due)
	open := fx.createTask(t, fx.lead, &due)
	completeAndRate(t, fx.fixture, rated.ID, 4)

	yes, no := true, false
	groups, err := fx.queries.GroupedTasks(context.Background(), fx.lead, ListInput{Rated: &yes})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Tasks, 1)
	assert.Equal(t, rated.ID, groups[0].Tasks[0].ID)

	groups, err = fx.queries.GroupedTasks(context.Background(), fx.lead, ListInput{Rated: &no})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Tasks, 1)
	assert.Equal(t, open.ID, groups[0].Tasks[0].ID)
}

func TestGroupedTasks_ArchivedFilter(t *testing.T) {
	fx := newQueryFixture(t)
	due := fx.now.AddDate(0, 0, 1)
	fx.createTask(t, fx.lead, &due)
	fx.project.IsArchived = true

	// archived projects are out of the default listing
	groups, err := fx.queries.GroupedTasks(context.Background(), fx.lead, ListInput{})
	require.NoError(t, err)
	assert.Empty(t, groups)

	archived := true
	groups, err = fx.queries.GroupedTasks(context.Background(), fx.lead, ListInput{Archived: &archived})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].Total)
}

func TestGroupedTasks_DescendingDueDateSortAccepted(t *testing.T) {
	fx := newQueryFixture(t)
	due := fx.now.AddDate(0, 0, 1)
	fx.createTask(t, fx.lead, &due)

	groups, err := fx.queries.GroupedTasks(context.Background(), fx.lead, ListInput{SortBy: "due-date-desc"})

	require.NoError(t, err)
	require.Len(t, groups, 1)
}

func TestListingsExcludeSoftDeletedTasks(t *testing.T) {
	fx := newQueryFixture(t)
	due := fx.now.AddDate(0, 0, 1)
	kept := fx.createTask(t, fx.lead, &due)
	gone := fx.createTask(t, fx.lead, &due)

	_, err := fx.svc.Delete(context.Background(), fx.lead, gone.ID)
	require.NoError(t, err)

	groups, err := fx.queries.GroupedTasks(context.Background(), fx.lead, ListInput{})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Tasks, 1)
	assert.Equal(t, kept.ID, groups[0].Tasks[0].ID)

	breakdown, err := fx.queries.StatusAnalytics(context.Background(), fx.lead, nil)
	require.NoError(t, err)
	require.Len(t, breakdown, 1)
	assert.Equal(t, 1, breakdown[0].TotalTasks)
}

func TestStatusAnalytics_PercentagesRounded(t *testing.T) {
	fx := newQueryFixture(t)
	due := fx.now.AddDate(0, 0, 1)
	first := fx.createTask(t, fx.lead, &due)
	fx.createTask(t, fx.lead, &due)
	fx.createTask(t, fx.lead, &due)

	_, err := fx.svc.UpdateStatus(context.Background(), fx.contributor, first.ID, model.StatusOngoing)
	require.NoError(t, err)

	breakdown, err := fx.queries.StatusAnalytics(context.Background(), fx.lead, nil)

	require.NoError(t, err)
	require.Len(t, breakdown, 1)
	b := breakdown[0]
	assert.Equal(t, fx.project.ID, b.ProjectID)
	assert.Equal(t, 3, b.TotalTasks)
	// 1/3 and 2/3, rounded to two decimals
	assert.Equal(t, 33.33, b.Ongoing)
	assert.Equal(t, 66.67, b.NotStarted)
	assert.Equal(t, 0.0, b.Completed)
}

func TestTodayAndOverdueReports(t *testing.T) {
	fx := newQueryFixture(t)

	today := fx.now.Add(2 * time.Hour)
	lastWeek := fx.now.AddDate(0, 0, -7)
	nextWeek := fx.now.AddDate(0, 0, 7)

	dueToday := &model.Task{
		ID: uuid.New(), Title: "due today", ProjectID: fx.project.ID,
		CreatedBy: fx.lead.ID, Status: model.StatusNotStarted, DueDate: &today,
	}
	overdue := &model.Task{
		ID: uuid.New(), Title: "overdue", ProjectID: fx.project.ID,
		CreatedBy: fx.lead.ID, Status: model.StatusOngoing, DueDate: &lastWeek,
	}
	onHoldOverdue := &model.Task{
		ID: uuid.New(), Title: "on hold", ProjectID: fx.project.ID,
		CreatedBy: fx.lead.ID, Status: model.StatusOnHold, DueDate: &lastWeek,
	}
	future := &model.Task{
		ID: uuid.New(), Title: "future", ProjectID: fx.project.ID,
		CreatedBy: fx.lead.ID, Status: model.StatusNotStarted, DueDate: &nextWeek,
	}
	for _, task := range []*model.Task{dueToday, overdue, onHoldOverdue, future} {
		fx.store.tasks[task.ID] = task
	}

	todays, err := fx.queries.TodayTasks(context.Background(), fx.lead)
	require.NoError(t, err)
	require.Len(t, todays, 1)
	assert.Equal(t, "due today", todays[0].Title)

	overdues, err := fx.queries.OverdueTasks(context.Background(), fx.lead)
	require.NoError(t, err)
	require.Len(t, overdues, 1)
	assert.Equal(t, "overdue", overdues[0].Title)
}

func TestPendingRatingTasks_RoleScoping(t *testing.T) {
	fx := newQueryFixture(t)
	due := fx.now.AddDate(0, 0, 1)
	task := fx.createTask(t, fx.lead, &due)
	_, err := fx.svc.UpdateStatus(context.Background(), fx.contributor, task.ID, model.StatusCompleted)
	require.NoError(t, err)

	// the task's lead sees it pending
	pending, err := fx.queries.PendingRatingTasks(context.Background(), fx.lead)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	// a lead not on the task does not
	otherLeadID := uuid.New()
	fx.store.users[otherLeadID] = &model.User{ID: otherLeadID, Role: model.RoleLead}
	otherLead := authz.Actor{ID: otherLeadID, Role: model.RoleLead, ProjectIDs: []uuid.UUID{fx.project.ID}}
	pending, err = fx.queries.PendingRatingTasks(context.Background(), otherLead)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// rating clears the report
	_, err = fx.svc.Rate(context.Background(), fx.lead, task.ID, RateInput{Rating: 4})
	require.NoError(t, err)
	pending, err = fx.queries.PendingRatingTasks(context.Background(), fx.admin)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestUserRatings_Access(t *testing.T) {
	fx := newQueryFixture(t)
	due := fx.now.AddDate(0, 0, 1)
	task := fx.createTask(t, fx.lead, &due)
	completeAndRate(t, fx.fixture, task.ID, 4)

	// the assignee reads their own aggregates
	aggs, err := fx.queries.UserRatings(context.Background(), fx.contributor, fx.contributor.ID, due.Year(), int(due.Month()))
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	assert.Equal(t, 4.0, aggs[0].Rating)

	// another contributor may not
	strangerID := uuid.New()
	stranger := authz.Actor{ID: strangerID, Role: model.RoleContributor}
	_, err = fx.queries.UserRatings(context.Background(), stranger, fx.contributor.ID, due.Year(), int(due.Month()))
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestTaskLogs_ReturnsTrail(t *testing.T) {
	fx := newQueryFixture(t)
	due := fx.now.AddDate(0, 0, 1)
	task := fx.createTask(t, fx.lead, &due)
	_, err := fx.svc.UpdateStatus(context.Background(), fx.contributor, task.ID, model.StatusOngoing)
	require.NoError(t, err)

	logs, err := fx.queries.TaskLogs(context.Background(), fx.lead, task.ID)

	require.NoError(t, err)
	require.Len(t, logs, 2)
	actions := []string{logs[0].ActionTaken, logs[1].ActionTaken}
	assert.Contains(t, actions, model.ActionTaskAdded)
	assert.Contains(t, actions, model.ActionTaskStatusUpdated)
}
