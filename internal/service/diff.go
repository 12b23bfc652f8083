package service

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ITH-Pros/ith-tea-pro-backend/internal/model"
)

// TaskPatch carries a partial update. A nil pointer means the field was
// not supplied and keeps its previous value; presence is never inferred
// from zero values. ClearDueDate removes the due date explicitly.
type TaskPatch struct {
	Title         *string
	Description   *string
	SectionID     *uuid.UUID
	Status        *model.TaskStatus
	DueDate       *time.Time
	ClearDueDate  bool
	CompletedDate *time.Time
	Priority      *string
	AssignedTo    *uuid.UUID

	// LeadIDs and Attachments replace the whole set when non-nil.
	LeadIDs     []uuid.UUID
	Attachments []string
}

type FieldChange struct {
	Previous interface{} `json:"previous"`
	New      interface{} `json:"new"`
}

// TaskDiff maps field name to its change, restricted to the
// whitelisted mutable attributes of a task.
type TaskDiff map[string]FieldChange

// diffTask compares the patch against the previous snapshot and keeps
// only fields that actually change.
func diffTask(prev *model.Task, p TaskPatch) TaskDiff {
	d := TaskDiff{}
	if p.Title != nil && *p.Title != prev.Title {
		d["title"] = FieldChange{Previous: prev.Title, New: *p.Title}
	}
	if p.Description != nil && *p.Description != prev.Description {
		d["description"] = FieldChange{Previous: prev.Description, New: *p.Description}
	}
	if p.SectionID != nil && *p.SectionID != prev.SectionID {
		d["section"] = FieldChange{Previous: prev.SectionID, New: *p.SectionID}
	}
	if p.Status != nil && *p.Status != prev.Status {
		d["status"] = FieldChange{Previous: prev.Status, New: *p.Status}
	}
	if p.ClearDueDate {
		if prev.DueDate != nil {
			d["dueDate"] = FieldChange{Previous: *prev.DueDate, New: nil}
		}
	} else if p.DueDate != nil && (prev.DueDate == nil || !prev.DueDate.Equal(*p.DueDate)) {
		d["dueDate"] = FieldChange{Previous: prev.DueDate, New: *p.DueDate}
	}
	if p.CompletedDate != nil && (prev.CompletedDate == nil || !prev.CompletedDate.Equal(*p.CompletedDate)) {
		d["completedDate"] = FieldChange{Previous: prev.CompletedDate, New: *p.CompletedDate}
	}
	if p.Priority != nil && *p.Priority != prev.Priority {
		d["priority"] = FieldChange{Previous: prev.Priority, New: *p.Priority}
	}
	if p.AssignedTo != nil && (prev.AssignedTo == nil || *prev.AssignedTo != *p.AssignedTo) {
		d["assignedTo"] = FieldChange{Previous: prev.AssignedTo, New: *p.AssignedTo}
	}
	return d
}

// auditAction classifies the edit: a status change wins over a due-date
// change, which wins over the plain update action.
func (d TaskDiff) auditAction() string {
	if _, ok := d["status"]; ok {
		return model.ActionTaskStatusUpdated
	}
	if _, ok := d["dueDate"]; ok {
		return model.ActionTaskDueDateUpdate
	}
	return model.ActionTaskUpdated
}

// previousJSON and newJSON render the changed-field pairs for the audit
// entry.
func (d TaskDiff) previousJSON() json.RawMessage {
	return d.sideJSON(func(c FieldChange) interface{} { return c.Previous })
}

func (d TaskDiff) newJSON() json.RawMessage {
	return d.sideJSON(func(c FieldChange) interface{} { return c.New })
}

func (d TaskDiff) sideJSON(pick func(FieldChange) interface{}) json.RawMessage {
	if len(d) == 0 {
		return nil
	}
	side := make(map[string]interface{}, len(d))
	for name, change := range d {
		side[name] = pick(change)
	}
	raw, err := json.Marshal(side)
	if err != nil {
		return nil
	}
	return raw
}

// fields renders the patch as a partial-update map for the repository;
// omitted attributes stay untouched.
func (p TaskPatch) fields() map[string]interface{} {
	out := map[string]interface{}{}
	if p.Title != nil {
		out["title"] = *p.Title
	}
	if p.Description != nil {
		out["description"] = *p.Description
	}
	if p.SectionID != nil {
		out["section_id"] = *p.SectionID
	}
	if p.Status != nil {
		out["status"] = *p.Status
	}
	if p.ClearDueDate {
		out["due_date"] = nil
	} else if p.DueDate != nil {
		out["due_date"] = *p.DueDate
	}
	if p.CompletedDate != nil {
		out["completed_date"] = *p.CompletedDate
	}
	if p.Priority != nil {
		out["priority"] = *p.Priority
	}
	if p.AssignedTo != nil {
		out["assigned_to"] = *p.AssignedTo
	}
	if p.Attachments != nil {
		// map updates bypass gorm serializers, so marshal here
		if raw, err := json.Marshal(p.Attachments); err == nil {
			out["attachments"] = raw
		}
	}
	return out
}
