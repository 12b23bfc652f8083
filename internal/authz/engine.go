// Package authz holds the pure authorization decisions for task
// operations. Every function answers allowed/denied from the actor, the
// target and relationship facts already loaded by the caller; nothing
// here touches storage, and any missing role or entity denies.
package authz

import (
	"github.com/google/uuid"

	"github.com/ITH-Pros/ith-tea-pro-backend/internal/model"
)

// Actor is the trusted identity produced upstream of the core: who is
// acting, with which role, over which accessible projects.
type Actor struct {
	ID         uuid.UUID
	Role       model.Role
	ProjectIDs []uuid.UUID
}

// CanAccessProject reports whether the project is in the actor's
// accessible set.
func (a Actor) CanAccessProject(projectID uuid.UUID) bool {
	for _, id := range a.ProjectIDs {
		if id == projectID {
			return true
		}
	}
	return false
}

type Engine struct {
	roles RoleTable
}

func NewEngine(roles RoleTable) *Engine {
	return &Engine{roles: roles}
}

// CanCreateTask allows SUPER_ADMIN, or any actor present in the
// project's membership sets. When a lead list is supplied for the new
// task every listed lead must already manage the project, super admin
// included.
func (e *Engine) CanCreateTask(actor Actor, project *model.Project, leadIDs []uuid.UUID) bool {
	if project == nil {
		return false
	}
	if actor.Role != model.RoleSuperAdmin && !project.HasMember(actor.ID) {
		return false
	}
	if len(leadIDs) > 0 {
		if len(project.ManagedBy) == 0 {
			return false
		}
		for _, id := range leadIDs {
			if !project.HasManager(id) {
				return false
			}
		}
	}
	return true
}

// CanAssignLeadAndAssignee denies when the assignee outranks the actor
// or the lead, or when a user would lead themselves.
func (e *Engine) CanAssignLeadAndAssignee(actorRole, leadRole, assigneeRole model.Role, leadID, assigneeID uuid.UUID) bool {
	if leadID == assigneeID {
		return false
	}
	if !e.roles.atLeast(actorRole, assigneeRole) {
		return false
	}
	return e.roles.atLeast(leadRole, assigneeRole)
}

// CanEditTask allows an actor ranking at least as high as the task's
// creator. Completed tasks are frozen for everyone but SUPER_ADMIN, and
// rated tasks for CONTRIBUTOR/INTERN.
func (e *Engine) CanEditTask(actorRole, creatorRole model.Role, status model.TaskStatus, isRated bool) bool {
	if actorRole != model.RoleSuperAdmin && status == model.StatusCompleted {
		return false
	}
	if isRated && (actorRole == model.RoleContributor || actorRole == model.RoleIntern) {
		return false
	}
	return e.roles.atLeast(actorRole, creatorRole)
}

// CanUpdateStatus allows SUPER_ADMIN unconditionally; anyone else must
// be a participant of the task (creator, assignee or lead) and rank at
// least as high as the assignee.
func (e *Engine) CanUpdateStatus(actor Actor, task *model.Task, assigneeRole model.Role) bool {
	if actor.Role == model.RoleSuperAdmin {
		return true
	}
	if task == nil || !task.IsParticipant(actor.ID) {
		return false
	}
	return e.roles.atLeast(actor.Role, assigneeRole)
}

// CanDeleteTask allows SUPER_ADMIN unconditionally. Completed or rated
// tasks cannot be deleted by anyone else. Deleting another user's task
// requires strictly outranking its creator.
func (e *Engine) CanDeleteTask(actor Actor, task *model.Task, creatorRole model.Role) bool {
	if actor.Role == model.RoleSuperAdmin {
		return true
	}
	if task == nil {
		return false
	}
	if task.Status == model.StatusCompleted || task.IsRated {
		return false
	}
	if task.CreatedBy == actor.ID {
		return true
	}
	return e.roles.above(actor.Role, creatorRole)
}

// CanRateTask allows SUPER_ADMIN and ADMIN unconditionally. Any other
// actor must not be the assignee, must be a lead of the task, and must
// have the task's project in their accessible set.
func (e *Engine) CanRateTask(actor Actor, task *model.Task) bool {
	if actor.Role == model.RoleSuperAdmin || actor.Role == model.RoleAdmin {
		return true
	}
	if task == nil || task.IsAssignedTo(actor.ID) {
		return false
	}
	if !task.HasLead(actor.ID) {
		return false
	}
	return actor.CanAccessProject(task.ProjectID)
}
