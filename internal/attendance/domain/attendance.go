package domain

import (
	"math"
	"time"
)

// DateLayout is how attendance dates are passed to and from the database
const DateLayout = "2006-01-02"

// ClockLayout formats check-in and check-out times in messages
const ClockLayout = "15:04:05"

// Record is one employee's attendance for one day
type Record struct {
	ID           string     `db:"id" json:"id"`
	EmployeeID   string     `db:"employee_id" json:"employee_id"`
	Date         time.Time  `db:"date" json:"date"`
	CheckIn      time.Time  `db:"check_in" json:"check_in"`
	CheckOut     *time.Time `db:"check_out" json:"check_out,omitempty"`
	DepartmentID *int64     `db:"department_id" json:"department_id,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// IsOpen reports whether the employee has not checked out yet
func (r *Record) IsOpen() bool {
	return r.CheckOut == nil
}

// Hours is the worked time in hours rounded to two decimals. Open records count zero.
func (r *Record) Hours() float64 {
	if r.CheckOut == nil {
		return 0
	}
	return Round2(r.CheckOut.Sub(r.CheckIn).Hours())
}

// DateString returns the record date as YYYY-MM-DD
func (r *Record) DateString() string {
	return r.Date.Format(DateLayout)
}

// TotalHours sums the hours of records
func TotalHours(records []*Record) float64 {
	var total float64
	for _, r := range records {
		total += r.Hours()
	}
	return Round2(total)
}

// EmployeeHours is the total worked time of one employee
type EmployeeHours struct {
	EmployeeID string  `db:"employee_id" json:"employee_id"`
	TotalHours float64 `db:"total_hours" json:"total_hours"`
}

// DateSummary counts the employees present on a date
type DateSummary struct {
	Date    time.Time `db:"date" json:"date"`
	Present int       `db:"present" json:"present"`
}

// ListParams filters attendance records. A nil Employees means every employee.
type ListParams struct {
	Employees []string
	From      *time.Time
	To        *time.Time
}

// Round2 rounds to two decimals
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
