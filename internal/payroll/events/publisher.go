package events

import (
	"context"

	"github.com/staffdesk/staffdesk/internal/payroll/domain"
	"github.com/staffdesk/staffdesk/pkg/logger"
	"github.com/staffdesk/staffdesk/pkg/messaging"
)

// PayrollEventPublisher publishes payroll events
type PayrollEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewPayrollEventPublisher creates a new payroll event publisher
func NewPayrollEventPublisher(publisher messaging.EventPublisher, log *logger.Logger) *PayrollEventPublisher {
	return &PayrollEventPublisher{
		publisher: publisher,
		logger:    log,
	}
}

// PublishPayslipGenerated publishes a payslip generated event
func (p *PayrollEventPublisher) PublishPayslipGenerated(ctx context.Context, slip *domain.Payslip) {
	data := messaging.PayslipGeneratedEvent{
		PayslipID:  slip.ID,
		EmployeeID: slip.EmployeeID,
		Month:      slip.Month,
		Year:       slip.Year,
		Salary:     slip.Salary,
		Strategy:   slip.Strategy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventPayslipGenerated, data); err != nil {
		p.logger.Error().Err(err).Str("payslip_id", slip.ID).Msg("failed to publish payslip generated event")
	}
}
