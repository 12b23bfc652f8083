package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ITH-Pros/ith-tea-pro-backend/internal/apperr"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/authz"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/config"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/model"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/repository"
)

// QueryService serves task listings, groupings and per-project
// analytics. It never mutates anything.
type QueryService struct {
	cfg      *config.Config
	tasks    TaskRepo
	projects ProjectRepo
	users    UserRepo
	comments CommentRepo
	audit    AuditReader
	ratings  RatingReader

	now func() time.Time
}

func NewQueryService(cfg *config.Config, tasks TaskRepo, projects ProjectRepo, users UserRepo, comments CommentRepo, audit AuditReader, ratings RatingReader) *QueryService {
	return &QueryService{
		cfg:      cfg,
		tasks:    tasks,
		projects: projects,
		users:    users,
		comments: comments,
		audit:    audit,
		ratings:  ratings,
		now:      time.Now,
	}
}

// ListInput collects the optional listing filters. GroupBy and SortBy
// are validated against the configured whitelists.
type ListInput struct {
	GroupBy     string
	SortBy      string
	ProjectIDs  []uuid.UUID
	SectionIDs  []uuid.UUID
	AssigneeIDs []uuid.UUID
	CreatorIDs  []uuid.UUID
	LeadIDs     []uuid.UUID
	Statuses    []model.TaskStatus
	Priorities  []string
	DueFrom     *time.Time
	DueTo       *time.Time
	Archived    *bool
	Rated       *bool
	OnlyMine    bool
}

// TaskGroup is one bucket of a grouped listing. Keys keep their first
// appearance order in the underlying sorted result.
type TaskGroup struct {
	Key          string                   `json:"key"`
	Tasks        []model.Task             `json:"tasks"`
	Total        int                      `json:"totalTasks"`
	StatusCounts map[model.TaskStatus]int `json:"statusCounts"`
}

// GroupedTasks runs the filtered listing and buckets the result by the
// requested dimension. Non-admin callers only ever see tasks of
// projects they belong to, and tasks touching deleted users are hidden
// from them.
func (s *QueryService) GroupedTasks(ctx context.Context, actor authz.Actor, in ListInput) ([]TaskGroup, error) {
	if in.GroupBy == "" {
		in.GroupBy = "default"
	}
	if in.SortBy == "" {
		in.SortBy = "default"
	}
	if !s.cfg.IsAllowedGroupBy(in.GroupBy) {
		return nil, apperr.Validation("unsupported groupBy value")
	}
	if !s.cfg.IsAllowedSortBy(in.SortBy) {
		return nil, apperr.Validation("unsupported sortBy value")
	}
	for _, st := range in.Statuses {
		if !s.cfg.IsValidStatus(st) {
			return nil, apperr.Validation("unsupported task status")
		}
	}

	filter := repository.TaskFilter{
		ProjectIDs:  in.ProjectIDs,
		SectionIDs:  in.SectionIDs,
		AssigneeIDs: in.AssigneeIDs,
		CreatorIDs:  in.CreatorIDs,
		LeadIDs:     in.LeadIDs,
		Statuses:    in.Statuses,
		Priorities:  in.Priorities,
		DueFrom:     in.DueFrom,
		DueTo:       in.DueTo,
		Archived:    in.Archived,
		Rated:       in.Rated,
	}
	if err := s.scopeFilter(ctx, actor, &filter); err != nil {
		return nil, err
	}
	if in.OnlyMine {
		me := actor.ID
		filter.ParticipantID = &me
	}

	sort := repository.SortDefault
	switch in.SortBy {
	case "due-date":
		sort = repository.SortDueDateAsc
	case "due-date-desc":
		sort = repository.SortDueDateDesc
	}

	tasks, err := s.tasks.Find(ctx, filter, sort)
	if err != nil {
		return nil, apperr.Dependency("list tasks", err)
	}
	return groupTasks(tasks, in.GroupBy), nil
}

// StatusBreakdown is the per-project status distribution, in percent.
type StatusBreakdown struct {
	ProjectID    uuid.UUID `json:"projectId"`
	ProjectName  string    `json:"projectName"`
	Completed    float64   `json:"COMPLETED"`
	Ongoing      float64   `json:"ONGOING"`
	OnHold       float64   `json:"ONHOLD"`
	NotStarted   float64   `json:"NOT_STARTED"`
	TotalTasks   int       `json:"totalTask"`
	OverdueTasks float64   `json:"overDueTasks"`
}

// StatusAnalytics computes the status percentage split per accessible
// project. Percentages are rounded to two decimals; a project without
// tasks reports zeroes.
func (s *QueryService) StatusAnalytics(ctx context.Context, actor authz.Actor, projectIDs []uuid.UUID) ([]StatusBreakdown, error) {
	filter := repository.TaskFilter{ProjectIDs: projectIDs}
	if err := s.scopeFilter(ctx, actor, &filter); err != nil {
		return nil, err
	}

	tasks, err := s.tasks.Find(ctx, filter, repository.SortDefault)
	if err != nil {
		return nil, apperr.Dependency("list tasks", err)
	}

	type counts struct {
		total, completed, ongoing, onHold, notStarted, overdue int
	}
	now := s.now()
	perProject := map[uuid.UUID]*counts{}
	order := []uuid.UUID{}
	names := map[uuid.UUID]string{}

	for _, t := range tasks {
		c, ok := perProject[t.ProjectID]
		if !ok {
			c = &counts{}
			perProject[t.ProjectID] = c
			order = append(order, t.ProjectID)
		}
		c.total++
		switch t.Status {
		case model.StatusCompleted:
			c.completed++
		case model.StatusOngoing:
			c.ongoing++
		case model.StatusOnHold:
			c.onHold++
		case model.StatusNotStarted:
			c.notStarted++
		}
		if t.Status != model.StatusCompleted && t.DueDate != nil && t.DueDate.Before(now) {
			c.overdue++
		}
	}

	for id := range perProject {
		if project, err := s.projects.GetByID(ctx, id); err == nil {
			names[id] = project.Name
		}
	}

	out := make([]StatusBreakdown, 0, len(order))
	for _, id := range order {
		c := perProject[id]
		b := StatusBreakdown{ProjectID: id, ProjectName: names[id], TotalTasks: c.total}
		if c.total > 0 {
			b.Completed = pct(c.completed, c.total)
			b.Ongoing = pct(c.ongoing, c.total)
			b.OnHold = pct(c.onHold, c.total)
			b.NotStarted = pct(c.notStarted, c.total)
			b.OverdueTasks = pct(c.overdue, c.total)
		}
		out = append(out, b)
	}
	return out, nil
}

// TodayTasks lists tasks due today that involve the actor as creator,
// assignee or lead.
func (s *QueryService) TodayTasks(ctx context.Context, actor authz.Actor) ([]model.Task, error) {
	now := s.now()
	from := startOfDay(now)
	to := from.Add(24*time.Hour - time.Nanosecond)
	me := actor.ID

	filter := repository.TaskFilter{
		DueFrom:     &from,
		DueTo:       &to,
		InvolvedID:  &me,
		NotStatuses: []model.TaskStatus{model.StatusCompleted},
	}
	if err := s.scopeFilter(ctx, actor, &filter); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.Find(ctx, filter, repository.SortDueDateAsc)
	if err != nil {
		return nil, apperr.Dependency("list tasks", err)
	}
	return tasks, nil
}

// OverdueTasks lists unfinished tasks past their due date, skipping
// on-hold ones.
func (s *QueryService) OverdueTasks(ctx context.Context, actor authz.Actor) ([]model.Task, error) {
	now := s.now()
	me := actor.ID

	filter := repository.TaskFilter{
		DueTo:       &now,
		InvolvedID:  &me,
		NotStatuses: []model.TaskStatus{model.StatusOnHold, model.StatusCompleted},
	}
	if err := s.scopeFilter(ctx, actor, &filter); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.Find(ctx, filter, repository.SortDueDateAsc)
	if err != nil {
		return nil, apperr.Dependency("list tasks", err)
	}
	return tasks, nil
}

// PendingRatingTasks lists completed but not yet rated tasks. Admins
// see every accessible project; others only tasks they lead.
func (s *QueryService) PendingRatingTasks(ctx context.Context, actor authz.Actor) ([]model.Task, error) {
	rated := false
	filter := repository.TaskFilter{
		Statuses: []model.TaskStatus{model.StatusCompleted},
		Rated:    &rated,
	}
	if actor.Role != model.RoleSuperAdmin && actor.Role != model.RoleAdmin {
		filter.LeadIDs = []uuid.UUID{actor.ID}
	}
	if err := s.scopeFilter(ctx, actor, &filter); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.Find(ctx, filter, repository.SortDueDateAsc)
	if err != nil {
		return nil, apperr.Dependency("list tasks", err)
	}
	return tasks, nil
}

// LateRatedTasks lists tasks whose rating arrived after the grace
// window.
func (s *QueryService) LateRatedTasks(ctx context.Context, actor authz.Actor) ([]model.Task, error) {
	late := true
	filter := repository.TaskFilter{DelayRated: &late}
	if err := s.scopeFilter(ctx, actor, &filter); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.Find(ctx, filter, repository.SortDueDateDesc)
	if err != nil {
		return nil, apperr.Dependency("list tasks", err)
	}
	return tasks, nil
}

// GetTask returns a single task with relations, enforcing project
// access for non-admin callers.
func (s *QueryService) GetTask(ctx context.Context, actor authz.Actor, taskID uuid.UUID) (*model.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, asAppErr(err, "task")
	}
	if actor.Role != model.RoleSuperAdmin && !actor.CanAccessProject(task.ProjectID) {
		return nil, apperr.Forbidden("you're not assigned this project")
	}
	return task, nil
}

// TaskComments returns the task's comments, optionally restricted to
// one type.
func (s *QueryService) TaskComments(ctx context.Context, actor authz.Actor, taskID uuid.UUID, commentType *model.CommentType) ([]model.Comment, error) {
	if _, err := s.GetTask(ctx, actor, taskID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListForTask(ctx, taskID, commentType)
	if err != nil {
		return nil, apperr.Dependency("list comments", err)
	}
	return comments, nil
}

// TaskLogs returns the task's audit trail, newest first.
func (s *QueryService) TaskLogs(ctx context.Context, actor authz.Actor, taskID uuid.UUID) ([]model.TaskLog, error) {
	if _, err := s.GetTask(ctx, actor, taskID); err != nil {
		return nil, err
	}
	logs, err := s.audit.ListForTask(ctx, taskID)
	if err != nil {
		return nil, apperr.Dependency("list task logs", err)
	}
	return logs, nil
}

// UserRatings returns a user's monthly rating aggregates. Callers see
// their own; leads and admins may look at anyone.
func (s *QueryService) UserRatings(ctx context.Context, actor authz.Actor, userID uuid.UUID, year, month int) ([]model.RatingAggregate, error) {
	if actor.ID != userID {
		switch actor.Role {
		case model.RoleSuperAdmin, model.RoleAdmin, model.RoleLead:
		default:
			return nil, apperr.Forbidden("not allowed to view ratings of other users")
		}
	}
	if month < 1 || month > 12 {
		return nil, apperr.Validation("month must be between 1 and 12")
	}
	aggs, err := s.ratings.ListForUser(ctx, userID, year, month)
	if err != nil {
		return nil, apperr.Dependency("list ratings", err)
	}
	return aggs, nil
}

// scopeFilter narrows the filter to what the actor may see: non-admins
// stay inside their project memberships and never see tasks touching
// deleted users.
func (s *QueryService) scopeFilter(ctx context.Context, actor authz.Actor, filter *repository.TaskFilter) error {
	if actor.Role != model.RoleSuperAdmin {
		if len(filter.ProjectIDs) == 0 {
			filter.ProjectIDs = actor.ProjectIDs
			if len(filter.ProjectIDs) == 0 {
				// membership in no projects means an empty listing,
				// not an unscoped one
				filter.ProjectIDs = []uuid.UUID{uuid.Nil}
			}
		} else {
			for _, id := range filter.ProjectIDs {
				if !actor.CanAccessProject(id) {
					return apperr.Forbidden("you're not assigned this project")
				}
			}
		}
	}
	if actor.Role != model.RoleSuperAdmin && actor.Role != model.RoleAdmin {
		deleted, err := s.users.ListDeletedIDs(ctx)
		if err != nil {
			return apperr.Dependency("load deleted users", err)
		}
		filter.ExcludeUserIDs = deleted
	}
	return nil
}

func groupTasks(tasks []model.Task, groupBy string) []TaskGroup {
	index := map[string]int{}
	groups := []TaskGroup{}

	for _, t := range tasks {
		key := groupKey(t, groupBy)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, TaskGroup{
				Key:          key,
				StatusCounts: map[model.TaskStatus]int{},
			})
		}
		groups[i].Tasks = append(groups[i].Tasks, t)
		groups[i].Total++
		groups[i].StatusCounts[t.Status]++
	}
	return groups
}

func groupKey(t model.Task, groupBy string) string {
	switch groupBy {
	case "createdBy":
		return t.CreatedBy.String()
	case "assignedTo":
		if t.AssignedTo == nil {
			return "unassigned"
		}
		return t.AssignedTo.String()
	case "status":
		return string(t.Status)
	case "section":
		return t.SectionID.String()
	default:
		// "default" and "projectId" both bucket by project
		return t.ProjectID.String()
	}
}

func pct(part, total int) float64 {
	return math.Round(float64(part)/float64(total)*10000) / 100
}
