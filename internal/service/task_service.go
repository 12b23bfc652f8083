// Package service holds the task lifecycle controller and the listing
// query builder. Each mutation runs validation, then authorization,
// then the mutation itself, then audit-log emission; an audit failure
// after a successful mutation surfaces as a partial success, never as a
// rollback.
package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ITH-Pros/ith-tea-pro-backend/internal/apperr"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/authz"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/config"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/model"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/notify"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/repository"
)

const notifyTimeout = 5 * time.Second

type TaskService struct {
	cfg      *config.Config
	engine   *authz.Engine
	tasks    TaskRepo
	projects ProjectRepo
	users    UserRepo
	comments CommentRepo
	ratings  RatingRepo
	audit    AuditRepo
	notifier notify.Notifier

	taskLocks   *keyedMutex
	ratingLocks *keyedMutex

	now func() time.Time
}

func NewTaskService(
	cfg *config.Config,
	engine *authz.Engine,
	tasks TaskRepo,
	projects ProjectRepo,
	users UserRepo,
	comments CommentRepo,
	ratings RatingRepo,
	audit AuditRepo,
	notifier notify.Notifier,
) *TaskService {
	return &TaskService{
		cfg:         cfg,
		engine:      engine,
		tasks:       tasks,
		projects:    projects,
		users:       users,
		comments:    comments,
		ratings:     ratings,
		audit:       audit,
		notifier:    notifier,
		taskLocks:   newKeyedMutex(),
		ratingLocks: newKeyedMutex(),
		now:         time.Now,
	}
}

type CreateTaskInput struct {
	Title       string
	Description string
	SectionID   uuid.UUID
	ProjectID   uuid.UUID
	LeadIDs     []uuid.UUID
	AssignedTo  *uuid.UUID
	DueDate     *time.Time
	Priority    string
	Attachments []string
}

type CommentInput struct {
	Text          string
	TaggedUserIDs []uuid.UUID
}

type RateInput struct {
	Rating        int
	Comment       string
	TaggedUserIDs []uuid.UUID
}

// TaskResult is the outcome of a task mutation. AuditErr is non-nil
// when the mutation itself succeeded but the audit entry could not be
// appended; callers decide whether to treat that partial success as
// success.
type TaskResult struct {
	Task      *model.Task
	Comment   *model.Comment
	Aggregate *model.RatingAggregate
	Action    string
	AuditErr  error
}

// Create validates the input, checks project state and authorization,
// persists the task, and notifies the assignee when someone else
// assigned them.
func (s *TaskService) Create(ctx context.Context, actor authz.Actor, in CreateTaskInput) (*TaskResult, error) {
	if in.Title == "" || in.SectionID == uuid.Nil || in.ProjectID == uuid.Nil || len(in.LeadIDs) == 0 {
		return nil, apperr.Validation("title, section, project and at least one lead are required")
	}

	now := s.now()
	if in.DueDate != nil && beforeToday(*in.DueDate, now) {
		return nil, apperr.Validation("task due date can't be before the current day")
	}

	project, err := s.projects.GetByID(ctx, in.ProjectID)
	if err != nil {
		return nil, asAppErr(err, "project")
	}
	if project.IsArchived {
		return nil, apperr.Conflict("project archived, can't add task")
	}
	if !project.IsActive {
		return nil, apperr.Conflict("project inactive, can't add task")
	}

	assignedTo := in.AssignedTo
	dueDate := in.DueDate
	if actor.Role == model.RoleContributor {
		// contributors always work on their own tasks, due end of day
		// unless they said otherwise
		self := actor.ID
		assignedTo = &self
		if dueDate == nil {
			d := endOfDay(now)
			dueDate = &d
		}
	}

	if !s.engine.CanCreateTask(actor, project, in.LeadIDs) {
		return nil, apperr.Forbidden("not allowed to add task for this project")
	}
	if assignedTo != nil {
		if err := s.checkLeadAndAssignee(ctx, actor, in.LeadIDs, *assignedTo); err != nil {
			return nil, err
		}
	}

	task := &model.Task{
		ID:          uuid.New(),
		Title:       in.Title,
		Description: in.Description,
		Status:      s.cfg.DefaultStatus(),
		SectionID:   in.SectionID,
		ProjectID:   in.ProjectID,
		CreatedBy:   actor.ID,
		AssignedTo:  assignedTo,
		DueDate:     dueDate,
		Priority:    in.Priority,
		Attachments: in.Attachments,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tasks.Create(ctx, task, in.LeadIDs); err != nil {
		return nil, apperr.Dependency("insert task", err)
	}

	if assignedTo != nil && *assignedTo != actor.ID {
		s.dispatchAssignment(task, project, *assignedTo, actor)
	}

	res := &TaskResult{Task: task, Action: model.ActionTaskAdded}
	res.AuditErr = s.audit.Append(ctx, &model.TaskLog{
		ActionTaken: model.ActionTaskAdded,
		ActionBy:    actor.ID,
		TaskID:      task.ID,
	})
	return res, nil
}

// Edit applies a partial update. Only supplied fields change; the audit
// entry records previous/new pairs for changed fields only, classified
// with status changes winning over due-date changes.
func (s *TaskService) Edit(ctx context.Context, actor authz.Actor, taskID uuid.UUID, patch TaskPatch) (*TaskResult, error) {
	unlock := s.taskLocks.lock("task:" + taskID.String())
	defer unlock()

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, asAppErr(err, "task")
	}

	if actor.Role != model.RoleSuperAdmin && !actor.CanAccessProject(task.ProjectID) {
		return nil, apperr.Forbidden("you're not assigned this project")
	}
	if actor.Role != model.RoleSuperAdmin && task.Status == model.StatusCompleted {
		return nil, apperr.Conflict("can't edit completed task")
	}
	if task.IsRated && (actor.Role == model.RoleContributor || actor.Role == model.RoleIntern) {
		return nil, apperr.Forbidden("not permitted to edit task once it is rated")
	}
	if !s.engine.CanEditTask(actor.Role, task.Creator.Role, task.Status, task.IsRated) {
		return nil, apperr.Forbidden("not allowed to edit task")
	}

	if patch.Status != nil && !s.cfg.IsValidStatus(*patch.Status) {
		return nil, apperr.Validation("unsupported task status")
	}
	if patch.LeadIDs != nil && len(patch.LeadIDs) == 0 {
		return nil, apperr.Validation("task must keep at least one lead")
	}

	if len(patch.LeadIDs) > 0 || patch.AssignedTo != nil {
		leadIDs := patch.LeadIDs
		if len(leadIDs) == 0 {
			leadIDs = task.LeadIDs()
		}
		assignee := patch.AssignedTo
		if assignee == nil {
			assignee = task.AssignedTo
		}
		if assignee != nil && len(leadIDs) > 0 {
			if err := s.checkLeadAndAssignee(ctx, actor, leadIDs, *assignee); err != nil {
				return nil, err
			}
		}
		if len(patch.LeadIDs) > 0 {
			if err := s.checkLeadsManageProject(ctx, task.ProjectID, patch.LeadIDs); err != nil {
				return nil, err
			}
		}
	}

	fields := patch.fields()
	diff := diffTask(task, patch)

	if patch.Status != nil && *patch.Status == model.StatusCompleted && task.Status != model.StatusCompleted {
		due := patch.DueDate
		if due == nil {
			due = task.DueDate
		}
		if due == nil {
			return nil, apperr.Validation("can't complete task without due date")
		}
		now := s.now()
		fields["completed_date"] = now
		fields["is_delay_task"] = now.After(*due)
	}

	if len(fields) > 0 {
		if err := s.tasks.UpdateFields(ctx, taskID, fields); err != nil {
			return nil, asAppErr(err, "task")
		}
	}
	if patch.LeadIDs != nil {
		if err := s.tasks.ReplaceLeads(ctx, taskID, patch.LeadIDs); err != nil {
			return nil, apperr.Dependency("replace task leads", err)
		}
	}

	updated, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		updated = task
	}

	res := &TaskResult{Task: updated, Action: diff.auditAction()}
	res.AuditErr = s.audit.Append(ctx, &model.TaskLog{
		ActionTaken: res.Action,
		ActionBy:    actor.ID,
		TaskID:      taskID,
		Previous:    diff.previousJSON(),
		New:         diff.newJSON(),
	})
	return res, nil
}

// UpdateStatus transitions the task. Completing requires a due date,
// stamps the completion time and flags the task as delayed when it
// finished past due. Rated tasks never transition.
func (s *TaskService) UpdateStatus(ctx context.Context, actor authz.Actor, taskID uuid.UUID, status model.TaskStatus) (*TaskResult, error) {
	if !s.cfg.IsValidStatus(status) {
		return nil, apperr.Validation("unsupported task status")
	}

	unlock := s.taskLocks.lock("task:" + taskID.String())
	defer unlock()

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, asAppErr(err, "task")
	}

	if task.IsRated {
		return nil, apperr.Conflict("task already rated")
	}
	if task.AssignedTo == nil {
		return nil, apperr.Validation("can't change status, task not assigned")
	}

	assignee := task.Assignee
	if assignee == nil {
		assignee, err = s.users.GetByID(ctx, *task.AssignedTo)
		if err != nil {
			// missing assignee record denies, fail closed
			return nil, apperr.Forbidden("not allowed to update task status")
		}
	}
	if !s.engine.CanUpdateStatus(actor, task, assignee.Role) {
		return nil, apperr.Forbidden("not allowed to update task status")
	}

	fields := map[string]interface{}{"status": status}
	if status == model.StatusCompleted {
		if task.DueDate == nil {
			return nil, apperr.Validation("can't complete task without due date")
		}
		now := s.now()
		fields["completed_date"] = now
		fields["is_delay_task"] = now.After(*task.DueDate)
	}

	if err := s.tasks.UpdateFields(ctx, taskID, fields); err != nil {
		return nil, asAppErr(err, "task")
	}

	updated, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		updated = task
	}

	res := &TaskResult{Task: updated, Action: model.ActionTaskStatusUpdated}
	if status != task.Status {
		prev, _ := json.Marshal(map[string]interface{}{"status": task.Status})
		next, _ := json.Marshal(map[string]interface{}{"status": status})
		res.AuditErr = s.audit.Append(ctx, &model.TaskLog{
			ActionTaken: model.ActionTaskStatusUpdated,
			ActionBy:    actor.ID,
			TaskID:      taskID,
			Previous:    prev,
			New:         next,
		})
	}
	return res, nil
}

// Delete soft-deletes the task; records stay in place and listings
// exclude them from then on.
func (s *TaskService) Delete(ctx context.Context, actor authz.Actor, taskID uuid.UUID) (*TaskResult, error) {
	unlock := s.taskLocks.lock("task:" + taskID.String())
	defer unlock()

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, asAppErr(err, "task")
	}

	if actor.Role != model.RoleSuperAdmin {
		if task.Status == model.StatusCompleted || task.IsRated {
			return nil, apperr.Conflict("can't delete completed or rated task")
		}
		if !actor.CanAccessProject(task.ProjectID) {
			return nil, apperr.Forbidden("the project of this task is no longer assigned to you")
		}
	}
	if !s.engine.CanDeleteTask(actor, task, task.Creator.Role) {
		return nil, apperr.Forbidden("not allowed to delete task")
	}

	if err := s.tasks.SoftDelete(ctx, taskID); err != nil {
		return nil, asAppErr(err, "task")
	}

	res := &TaskResult{Task: task, Action: model.ActionTaskDeleted}
	res.AuditErr = s.audit.Append(ctx, &model.TaskLog{
		ActionTaken: model.ActionTaskDeleted,
		ActionBy:    actor.ID,
		TaskID:      taskID,
	})
	return res, nil
}

// Comment appends a TASK-typed comment to the task.
func (s *TaskService) Comment(ctx context.Context, actor authz.Actor, taskID uuid.UUID, in CommentInput) (*TaskResult, error) {
	if in.Text == "" {
		return nil, apperr.Validation("comment text is required")
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, asAppErr(err, "task")
	}

	comment := &model.Comment{
		ID:          uuid.New(),
		TaskID:      task.ID,
		CommentedBy: actor.ID,
		Text:        in.Text,
		Type:        model.CommentTypeTask,
		CreatedAt:   s.now(),
	}
	if err := s.comments.Create(ctx, comment, in.TaggedUserIDs); err != nil {
		return nil, apperr.Dependency("insert comment", err)
	}

	res := &TaskResult{Task: task, Comment: comment, Action: model.ActionTaskComment}
	res.AuditErr = s.audit.Append(ctx, &model.TaskLog{
		ActionTaken: model.ActionTaskComment,
		ActionBy:    actor.ID,
		TaskID:      task.ID,
		CommentID:   &comment.ID,
	})
	return res, nil
}

// Rate stores the rating on the task and recomputes the aggregate for
// the assignee's due-date cohort from all currently rated siblings.
// A rating arriving past the grace window only flags the task as
// delay-rated; it is never blocked.
func (s *TaskService) Rate(ctx context.Context, actor authz.Actor, taskID uuid.UUID, in RateInput) (*TaskResult, error) {
	if in.Rating < model.MinRating || in.Rating > model.MaxRating {
		return nil, apperr.Validation("rating must be between 1 and 6")
	}

	unlock := s.taskLocks.lock("task:" + taskID.String())
	defer unlock()

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, asAppErr(err, "task")
	}

	if task.Status != model.StatusCompleted || task.CompletedDate == nil {
		return nil, apperr.Conflict("task is not yet marked as completed")
	}
	if task.DueDate == nil {
		return nil, apperr.Validation("task due date is not present")
	}
	if task.AssignedTo == nil {
		return nil, apperr.Validation("task is not assigned to anyone")
	}

	if !s.engine.CanRateTask(actor, task) {
		return nil, apperr.Forbidden("not allowed to rate task")
	}

	now := s.now()
	isDelayRated := now.Sub(*task.DueDate).Hours() > float64(s.cfg.RatingGraceHours)

	var comment *model.Comment
	if in.Comment != "" {
		comment = &model.Comment{
			ID:          uuid.New(),
			TaskID:      task.ID,
			CommentedBy: actor.ID,
			Text:        in.Comment,
			Type:        model.CommentTypeRating,
			CreatedAt:   now,
		}
		if err := s.comments.Create(ctx, comment, in.TaggedUserIDs); err != nil {
			return nil, apperr.Dependency("insert rating comment", err)
		}
	}

	assignee := *task.AssignedTo
	due := *task.DueDate

	// aggregate updates for one (assignee, due date) cohort are
	// serialized; last writer wins otherwise
	unlockAgg := s.ratingLocks.lock("rating:" + assignee.String() + ":" + due.UTC().Format(time.RFC3339Nano))
	defer unlockAgg()

	fields := map[string]interface{}{
		"rating":   in.Rating,
		"is_rated": true,
		"rated_by": actor.ID,
	}
	if isDelayRated {
		fields["is_delay_rated"] = true
	}
	if err := s.tasks.UpdateFields(ctx, taskID, fields); err != nil {
		return nil, asAppErr(err, "task")
	}

	agg, err := s.recomputeAggregate(ctx, assignee, due, taskID)
	if err != nil {
		return nil, err
	}

	updated, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		updated = task
	}

	res := &TaskResult{Task: updated, Comment: comment, Aggregate: agg, Action: model.ActionRateTask}
	res.AuditErr = s.audit.Append(ctx, &model.TaskLog{
		ActionTaken: model.ActionRateTask,
		ActionBy:    actor.ID,
		TaskID:      task.ID,
		UserID:      &assignee,
		RatingID:    &agg.ID,
	})
	return res, nil
}

// recomputeAggregate re-reads every sibling task sharing the exact
// (assignee, due date) pair and averages the rated ones. The recompute
// is intentionally not incremental: running it twice with the same
// inputs yields the same mean.
func (s *TaskService) recomputeAggregate(ctx context.Context, assignee uuid.UUID, due time.Time, taskID uuid.UUID) (*model.RatingAggregate, error) {
	siblings, err := s.tasks.Find(ctx, repository.TaskFilter{
		AssigneeIDs: []uuid.UUID{assignee},
		DueDate:     &due,
	}, repository.SortDefault)
	if err != nil {
		return nil, apperr.Dependency("load sibling tasks", err)
	}

	sum, count := 0, 0
	for _, sib := range siblings {
		if sib.IsRated {
			sum += sib.Rating
			count++
		}
	}
	if count == 0 {
		return nil, apperr.Dependency("recompute rating", errors.New("no rated sibling tasks found"))
	}

	agg := &model.RatingAggregate{
		ID:      uuid.New(),
		UserID:  assignee,
		Year:    due.Year(),
		Month:   int(due.Month()),
		Date:    due.UTC().Day(),
		DueDate: due,
		Rating:  float64(sum) / float64(count),
	}
	if err := s.ratings.Upsert(ctx, agg, taskID); err != nil {
		return nil, apperr.Dependency("upsert rating aggregate", err)
	}
	return agg, nil
}

// checkLeadAndAssignee loads the users and applies the seniority rule:
// neither the actor nor any lead may be outranked by the assignee, and
// nobody leads themselves. Missing users deny.
func (s *TaskService) checkLeadAndAssignee(ctx context.Context, actor authz.Actor, leadIDs []uuid.UUID, assigneeID uuid.UUID) error {
	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.Forbidden("not allowed to add task for selected lead/assignee")
		}
		return apperr.Dependency("load assignee", err)
	}

	leads, err := s.users.FindByIDs(ctx, leadIDs)
	if err != nil {
		return apperr.Dependency("load leads", err)
	}
	if len(leads) != len(leadIDs) {
		return apperr.Forbidden("not allowed to add task for selected lead/assignee")
	}
	for _, lead := range leads {
		if !s.engine.CanAssignLeadAndAssignee(actor.Role, lead.Role, assignee.Role, lead.ID, assignee.ID) {
			return apperr.Forbidden("not allowed to add task for selected lead/assignee")
		}
	}
	return nil
}

// checkLeadsManageProject requires every non-admin lead to already be
// in the project's managedBy set.
func (s *TaskService) checkLeadsManageProject(ctx context.Context, projectID uuid.UUID, leadIDs []uuid.UUID) error {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return asAppErr(err, "project")
	}
	leads, err := s.users.FindByIDs(ctx, leadIDs)
	if err != nil {
		return apperr.Dependency("load leads", err)
	}
	if len(leads) != len(leadIDs) {
		return apperr.Forbidden("not allowed to add given lead for this task")
	}
	for _, lead := range leads {
		if lead.Role == model.RoleAdmin {
			continue
		}
		if !project.HasManager(lead.ID) {
			return apperr.Forbidden("not allowed to add given lead for this task")
		}
	}
	return nil
}

// dispatchAssignment notifies the assignee in the background. Failures
// are logged and never fail the create.
func (s *TaskService) dispatchAssignment(task *model.Task, project *model.Project, assigneeID uuid.UUID, actor authz.Actor) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		assignee, err := s.users.GetByID(ctx, assigneeID)
		if err != nil {
			log.Printf("[TaskService] assignment notification skipped, assignee lookup failed: %v", err)
			return
		}
		assignedBy := ""
		if u, err := s.users.GetByID(ctx, actor.ID); err == nil {
			assignedBy = u.Name
		}

		n := notify.AssignmentNotification{
			TaskID:         task.ID,
			TaskLink:       base64.StdEncoding.EncodeToString([]byte(task.ID.String())),
			TaskTitle:      task.Title,
			ProjectName:    project.Name,
			AssigneeID:     assignee.ID,
			AssigneeName:   assignee.Name,
			AssigneeEmail:  assignee.Email,
			AssignedByName: assignedBy,
		}
		if err := s.notifier.NotifyAssignment(ctx, n); err != nil {
			log.Printf("[TaskService] assignment notification failed: %v", err)
		}
	}()
}

func asAppErr(err error, entity string) error {
	switch {
	case errors.Is(err, repository.ErrTaskNotFound),
		errors.Is(err, repository.ErrProjectNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrRatingNotFound):
		return apperr.NotFound(entity + " not found")
	}
	return apperr.Dependency("load "+entity, err)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func beforeToday(t, now time.Time) bool {
	return startOfDay(t).Before(startOfDay(now))
}

// endOfDay matches the legacy default for contributor tasks:
// 18:29:59.999 UTC, end of day in IST.
func endOfDay(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 18, 29, 59, int(999*time.Millisecond), time.UTC)
}
