// Package export renders payslips and reports as downloadable documents.
package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	payrolldomain "github.com/staffdesk/staffdesk/internal/payroll/domain"
	taskdomain "github.com/staffdesk/staffdesk/internal/task/domain"
)

// Content types of the rendered documents
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV  = "text/csv; charset=utf-8"
)

const (
	fontFamily = "Helvetica"
	lineHeight = 8.0
)

// PayslipPDF renders a single payslip
func PayslipPDF(slip *payrolldomain.Payslip) ([]byte, error) {
	pdf := newDocument("Company Payslip")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	fields := [][2]string{
		{"Employee", slip.EmployeeID},
		{"Period", slip.Period()},
		{"Base Salary", "BDT " + payrolldomain.FormatAmount(slip.BaseSalary)},
		{"Hours Worked", formatHours(slip.HoursWorked)},
		{"Overtime Hours", formatHours(slip.OvertimeHours)},
		{"Strategy", slip.Strategy},
	}
	if slip.Strategy == payrolldomain.StrategySalesCommission {
		fields = append(fields,
			[2]string{"Sales Amount", "BDT " + payrolldomain.FormatAmount(slip.SalesAmount)},
			[2]string{"Commission Rate", fmt.Sprintf("%g%%", slip.CommissionRate*100)},
		)
	}

	pdf.SetFont(fontFamily, "", 12)
	for _, f := range fields {
		pdf.CellFormat(55, lineHeight, tr(f[0]+":"), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, lineHeight, tr(f[1]), "", 1, "L", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont(fontFamily, "B", 13)
	pdf.CellFormat(55, lineHeight, "Net Salary:", "T", 0, "L", false, 0, "")
	pdf.CellFormat(0, lineHeight, "BDT "+payrolldomain.FormatAmount(slip.Salary), "T", 1, "L", false, 0, "")

	return output(pdf)
}

// TaskReportPDF renders the task list of one employee
func TaskReportPDF(employee string, tasks []*taskdomain.Task) ([]byte, error) {
	pdf := newDocument("Employee Task Report — " + employee)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if len(tasks) == 0 {
		pdf.SetFont(fontFamily, "I", 12)
		pdf.CellFormat(0, lineHeight, "No tasks found.", "", 1, "L", false, 0, "")
		return output(pdf)
	}

	widths := []float64{100, 45, 35}
	pdf.SetFont(fontFamily, "B", 11)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range []string{"Title", "Status", "Deadline"} {
		pdf.CellFormat(widths[i], lineHeight, header, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(fontFamily, "", 11)
	for _, t := range tasks {
		pdf.CellFormat(widths[0], lineHeight, tr(truncate(t.Title, 55)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], lineHeight, t.Status, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], lineHeight, t.DeadlineString(), "1", 1, "L", false, 0, "")
	}
	return output(pdf)
}

func newDocument(title string) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("StaffDesk", true)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont(fontFamily, "B", 16)
	pdf.CellFormat(0, 12, tr(title), "", 1, "C", false, 0, "")
	pdf.Ln(4)
	return pdf
}

func output(pdf *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func formatHours(h float64) string {
	return fmt.Sprintf("%.2f", h)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
