package payroll

import (
	"bytes"
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// ========== PAYSLIP ==========

// GetPayslip renders a one-page PDF with the pay breakdown of an entry.
func (s *PayrollServiceImpl) GetPayslip(ctx context.Context, actor payroll.Actor, id string) (*payroll.Payslip, error) {
	entry, err := s.entries.GetByID(ctx, id, actor.CompanyID)
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	period, err := s.periods.GetByID(ctx, entry.PayPeriodID, actor.CompanyID)
	if err != nil {
		return nil, err
	}

	content, err := renderPayslip(entry, period)
	if err != nil {
		return nil, fmt.Errorf("failed to render payslip: %w", err)
	}

	return &payroll.Payslip{
		Filename: fmt.Sprintf("payslip-%s.pdf", entry.EntryNumber),
		Content:  content,
	}, nil
}

func renderPayslip(e payroll.PayrollEntry, p payroll.PayPeriod) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	name := e.EmployeeID
	if e.EmployeeName != nil {
		name = *e.EmployeeName
	}
	if e.EmployeeCode != nil {
		name = fmt.Sprintf("%s (%s)", name, *e.EmployeeCode)
	}
	pdf.Cell(0, 7, "Employee: "+name)
	pdf.Ln(6)
	pdf.Cell(0, 7, "Entry: "+e.EntryNumber)
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Period: %s to %s (%s)", formatDate(p.StartDate), formatDate(p.EndDate), p.Frequency))
	pdf.Ln(6)
	pdf.Cell(0, 7, "Pay date: "+formatDate(p.PayDate))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(70, 7, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(40, 7, "Hours", "B", 0, "R", false, 0, "")
	pdf.CellFormat(50, 7, "Amount", "B", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)

	lines := []struct {
		label  string
		hours  *decimal.Decimal
		amount decimal.Decimal
	}{
		{"Regular", &e.RegularHours, e.RegularPay},
		{"Overtime", &e.OvertimeHours, e.OvertimePay},
		{"Double overtime", &e.DoubleOvertimeHours, e.DoubleOvertimePay},
		{"PTO", &e.PTOHours, e.PTOPay},
		{"Sick", &e.SickHours, e.SickPay},
		{"Holiday", &e.HolidayHours, e.HolidayPay},
		{"Salary", nil, e.SalaryAmount},
		{"Bonuses", nil, e.Bonuses},
	}
	for _, l := range lines {
		if l.amount.IsZero() && (l.hours == nil || l.hours.IsZero()) {
			continue
		}
		hours := ""
		if l.hours != nil {
			hours = l.hours.StringFixed(2)
		}
		pdf.CellFormat(70, 7, l.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, hours, "", 0, "R", false, 0, "")
		pdf.CellFormat(50, 7, l.amount.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(110, 7, "Gross pay", "T", 0, "L", false, 0, "")
	pdf.CellFormat(50, 7, e.GrossPay.StringFixed(2), "T", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(110, 7, "Deductions", "", 0, "L", false, 0, "")
	pdf.CellFormat(50, 7, e.TotalDeductions.Neg().StringFixed(2), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(110, 8, "Net pay", "T", 0, "L", false, 0, "")
	pdf.CellFormat(50, 8, e.NetPay.StringFixed(2), "T", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
