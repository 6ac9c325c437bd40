package service

import (
	"context"
	"fmt"
	"time"

	"github.com/staffdesk/staffdesk/internal/task/domain"
	"github.com/staffdesk/staffdesk/pkg/logger"
)

// ReminderRepository finds tasks that need a deadline reminder
type ReminderRepository interface {
	DueForReminder(ctx context.Context, due, today time.Time) ([]*domain.Task, error)
	MarkReminded(ctx context.Context, id string, day time.Time) error
}

// DeadlineReminder notifies assignees of unfinished tasks due tomorrow,
// at most once per task per day
type DeadlineReminder struct {
	repo     ReminderRepository
	notifier Notifier
	now      func() time.Time
	logger   *logger.Logger
}

// NewDeadlineReminder creates a new deadline reminder
func NewDeadlineReminder(repo ReminderRepository, notifier Notifier, log *logger.Logger) *DeadlineReminder {
	return &DeadlineReminder{
		repo:     repo,
		notifier: notifier,
		now:      time.Now,
		logger:   log.WithComponent("deadline-reminder"),
	}
}

// WithClock replaces the time source
func (r *DeadlineReminder) WithClock(now func() time.Time) *DeadlineReminder {
	r.now = now
	return r
}

// RunOnce sends today's reminders and returns how many went out
func (r *DeadlineReminder) RunOnce(ctx context.Context) (int, error) {
	now := r.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	tasks, err := r.repo.DueForReminder(ctx, tomorrow, today)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, task := range tasks {
		r.notifier.Notify(ctx, task.AssignedTo, fmt.Sprintf("Reminder: '%s' is due on %s", task.Title, task.DeadlineString()))
		if err := r.repo.MarkReminded(ctx, task.ID, today); err != nil {
			r.logger.Error().Err(err).Str("task_id", task.ID).Msg("failed to mark task reminded")
			continue
		}
		sent++
	}

	if sent > 0 {
		r.logger.Info().Int("sent", sent).Str("due", tomorrow.Format(domain.DateLayout)).Msg("deadline reminders sent")
	}
	return sent, nil
}

// Run calls RunOnce immediately and then every interval until ctx is done
func (r *DeadlineReminder) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error().Err(err).Msg("deadline reminder run failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
