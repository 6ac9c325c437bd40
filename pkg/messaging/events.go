package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventUserRegistered  = "user.registered"
	EventUserRoleChanged = "user.role_changed"

	EventAttendanceCheckIn  = "attendance.check_in"
	EventAttendanceCheckOut = "attendance.check_out"

	EventTaskCreated       = "task.created"
	EventTaskStatusChanged = "task.status_changed"

	EventPayslipGenerated = "payroll.payslip_generated"

	EventNotificationEmail = "notification.email"
)

// Queues
const (
	QueueMailer = "staffdesk.mailer"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// UserRegisteredEvent is published after a new account is created
type UserRegisteredEvent struct {
	Username     string `json:"username"`
	Role         string `json:"role"`
	DepartmentID *int64 `json:"department_id,omitempty"`
}

// UserRoleChangedEvent is published when a user's role changes
type UserRoleChangedEvent struct {
	Username  string `json:"username"`
	OldRole   string `json:"old_role"`
	NewRole   string `json:"new_role"`
	ChangedBy string `json:"changed_by"`
}

// AttendanceEvent is published on check-in and check-out
type AttendanceEvent struct {
	EmployeeID string    `json:"employee_id"`
	Date       string    `json:"date"`
	At         time.Time `json:"at"`
}

// TaskCreatedEvent is published when a task is assigned
type TaskCreatedEvent struct {
	TaskID     string `json:"task_id"`
	Title      string `json:"title"`
	AssignedTo string `json:"assigned_to"`
	TaskType   string `json:"task_type"`
	Deadline   string `json:"deadline"`
}

// TaskStatusChangedEvent is published on every status transition
type TaskStatusChangedEvent struct {
	TaskID    string `json:"task_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	ChangedBy string `json:"changed_by"`
}

// PayslipGeneratedEvent is published after a payslip is stored
type PayslipGeneratedEvent struct {
	PayslipID  string  `json:"payslip_id"`
	EmployeeID string  `json:"employee_id"`
	Month      string  `json:"month"`
	Year       int     `json:"year"`
	Salary     float64 `json:"salary"`
	Strategy   string  `json:"strategy"`
}

// EmailNotification asks the mailer worker to deliver a message
type EmailNotification struct {
	Recipient string `json:"recipient"`
	Email     string `json:"email,omitempty"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
}
