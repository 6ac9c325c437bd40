package events

import (
	"context"
	"time"

	"github.com/staffdesk/staffdesk/internal/attendance/domain"
	"github.com/staffdesk/staffdesk/pkg/logger"
	"github.com/staffdesk/staffdesk/pkg/messaging"
)

// AttendanceEventPublisher publishes check-in and check-out events
type AttendanceEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewAttendanceEventPublisher creates a new attendance event publisher
func NewAttendanceEventPublisher(publisher messaging.EventPublisher, log *logger.Logger) *AttendanceEventPublisher {
	return &AttendanceEventPublisher{
		publisher: publisher,
		logger:    log,
	}
}

// PublishCheckIn publishes an attendance.check_in event
func (p *AttendanceEventPublisher) PublishCheckIn(ctx context.Context, rec *domain.Record) {
	p.publish(ctx, messaging.EventAttendanceCheckIn, rec, rec.CheckIn)
}

// PublishCheckOut publishes an attendance.check_out event
func (p *AttendanceEventPublisher) PublishCheckOut(ctx context.Context, rec *domain.Record) {
	if rec.CheckOut == nil {
		return
	}
	p.publish(ctx, messaging.EventAttendanceCheckOut, rec, *rec.CheckOut)
}

func (p *AttendanceEventPublisher) publish(ctx context.Context, eventType string, rec *domain.Record, at time.Time) {
	data := messaging.AttendanceEvent{
		EmployeeID: rec.EmployeeID,
		Date:       rec.DateString(),
		At:         at,
	}

	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str("employee_id", rec.EmployeeID).Msg("failed to publish attendance event")
	}
}
