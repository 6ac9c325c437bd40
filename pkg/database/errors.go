package database

import (
	stderrors "errors"
	"strings"

	"github.com/lib/pq"
	"github.com/staffdesk/staffdesk/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	case "23514":
		return mapCheckConstraint(pqErr)

	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	case "23503":
		return errors.BadRequest("referenced record does not exist")

	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

// MapError returns the mapped AppError for pq errors and err otherwise.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if appErr := MapPQError(err); appErr != nil {
		return appErr
	}
	return err
}

func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "role_valid"):
		return errors.Validation(map[string]string{
			"role": "must be one of: Admin, Manager, Employee",
		})
	case strings.Contains(constraint, "status_valid"):
		return errors.BadRequest("Invalid status")
	case strings.Contains(constraint, "strategy_valid"):
		return errors.Validation(map[string]string{
			"strategy": "must be one of: Standard Hourly Pay, Sales Commission Pay",
		})
	case strings.Contains(constraint, "not_own_parent"):
		return errors.BadRequest("A department cannot be its own parent.")
	case strings.Contains(constraint, "check_out_after_check_in"):
		return errors.BadRequest("check-out cannot precede check-in")
	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "users_username"):
		return "User already exists."
	case strings.Contains(constraint, "departments_name"):
		return "Department already exists."
	case strings.Contains(constraint, "attendance_employee_date"):
		return "Already checked in today."
	case strings.Contains(constraint, "payslips_period"):
		return "A payslip for this period and strategy already exists."
	default:
		return "a record with these values already exists"
	}
}
