package kanban

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Reminder sends each user one mail per day listing the tasks assigned to
// them that are due that day. The sweep is read-only and idempotent per run;
// cmd wires it to a ticker.
type Reminder struct {
	tasks  *TaskService
	users  Users
	mailer NotificationMailer
	logger Logger
	now    func() time.Time
}

// NewReminder returns a reminder sweep over the given task service.
func NewReminder(tasks *TaskService, users Users, mailer NotificationMailer) *Reminder {
	return &Reminder{
		tasks:  tasks,
		users:  users,
		mailer: mailer,
		logger: defLogger{},
		now:    time.Now,
	}
}

func (r *Reminder) WithLogger(logger Logger) *Reminder {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// WithClock overrides the sweep's notion of today. Tests use it to pin the
// due-date window.
func (r *Reminder) WithClock(now func() time.Time) *Reminder {
	if now != nil {
		r.now = now
	}
	return r
}

// Run performs one sweep: load today's due tasks, group them by assignee,
// send one mail per user. A failed mail is logged and does not stop the
// sweep.
func (r *Reminder) Run(ctx context.Context) error {
	today := r.now()

	due, err := r.tasks.DueOn(ctx, today)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	byAssignee := map[uuid.UUID][]*Task{}
	recipients := map[uuid.UUID]*User{}
	for _, task := range due {
		for _, assignee := range task.Assignees {
			byAssignee[assignee.ID] = append(byAssignee[assignee.ID], task)
			recipients[assignee.ID] = assignee
		}
	}

	sent := 0
	for id, tasks := range byAssignee {
		user := recipients[id]
		if err := r.mailer.SendTaskReminder(ctx, user, tasks); err != nil {
			r.logger.Error("failed to send reminder to %q: %v", user.Email, err)
			continue
		}
		sent++
	}

	r.logger.Info("reminder sweep: %d tasks due, %d mails sent", len(due), sent)
	return nil
}
