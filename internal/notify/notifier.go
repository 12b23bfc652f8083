// Package notify is the fire-and-forget notification collaborator.
// Delivery failure never fails the originating task operation.
package notify

import (
	"context"
	"log"

	"github.com/google/uuid"
)

// AssignmentNotification carries the details of a task assignment.
// TaskLink is an opaque token the frontend resolves back to the task.
type AssignmentNotification struct {
	TaskID         uuid.UUID
	TaskLink       string
	TaskTitle      string
	ProjectName    string
	AssigneeID     uuid.UUID
	AssigneeName   string
	AssigneeEmail  string
	AssignedByName string
}

type Notifier interface {
	NotifyAssignment(ctx context.Context, n AssignmentNotification) error
}

// LogNotifier writes notifications to the process log. It stands in
// for the mail/push transport in development and tests.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (l *LogNotifier) NotifyAssignment(_ context.Context, n AssignmentNotification) error {
	log.Printf("[Notify] task %q assigned to %s <%s> by %s (link %s)",
		n.TaskTitle, n.AssigneeName, n.AssigneeEmail, n.AssignedByName, n.TaskLink)
	return nil
}
