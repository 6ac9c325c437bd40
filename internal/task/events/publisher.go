package events

import (
	"context"

	"github.com/staffdesk/staffdesk/internal/task/domain"
	"github.com/staffdesk/staffdesk/pkg/logger"
	"github.com/staffdesk/staffdesk/pkg/messaging"
)

// TaskEventPublisher publishes task-related events
type TaskEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewTaskEventPublisher creates a new task event publisher
func NewTaskEventPublisher(publisher messaging.EventPublisher, log *logger.Logger) *TaskEventPublisher {
	return &TaskEventPublisher{
		publisher: publisher,
		logger:    log,
	}
}

// PublishTaskCreated publishes a task created event
func (p *TaskEventPublisher) PublishTaskCreated(ctx context.Context, task *domain.Task) {
	data := messaging.TaskCreatedEvent{
		TaskID:     task.ID,
		Title:      task.Title,
		AssignedTo: task.AssignedTo,
		TaskType:   task.TaskType,
		Deadline:   task.DeadlineString(),
	}

	if err := p.publisher.Publish(ctx, messaging.EventTaskCreated, data); err != nil {
		p.logger.Error().Err(err).Str("task_id", task.ID).Msg("failed to publish task created event")
	}
}

// PublishTaskStatusChanged publishes a task status changed event
func (p *TaskEventPublisher) PublishTaskStatusChanged(ctx context.Context, task *domain.Task, oldStatus, changedBy string) {
	data := messaging.TaskStatusChangedEvent{
		TaskID:    task.ID,
		OldStatus: oldStatus,
		NewStatus: task.Status,
		ChangedBy: changedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventTaskStatusChanged, data); err != nil {
		p.logger.Error().Err(err).Str("task_id", task.ID).Msg("failed to publish task status changed event")
	}
}
