package payroll

import "github.com/shopspring/decimal"

// Default pay multipliers applied when a calculation does not override them.
var (
	DefaultOvertimeMultiplier       = decimal.RequireFromString("1.5")
	DefaultDoubleOvertimeMultiplier = decimal.RequireFromString("2.0")
	DefaultHolidayMultiplier        = decimal.RequireFromString("1.5")
)

const currencyPlaces = 2

// HourBuckets holds hours per pay category. Zero values mean no hours.
type HourBuckets struct {
	Regular        decimal.Decimal
	Overtime       decimal.Decimal
	DoubleOvertime decimal.Decimal
	PTO            decimal.Decimal
	Sick           decimal.Decimal
	Holiday        decimal.Decimal
}

// Total returns the sum of all buckets.
func (h HourBuckets) Total() decimal.Decimal {
	return h.Regular.Add(h.Overtime).Add(h.DoubleOvertime).Add(h.PTO).Add(h.Sick).Add(h.Holiday)
}

// CalculationInput is everything Calculate needs. Nil multipliers fall back to the defaults.
type CalculationInput struct {
	Hours                    HourBuckets
	HourlyRate               decimal.Decimal
	OvertimeMultiplier       *decimal.Decimal
	DoubleOvertimeMultiplier *decimal.Decimal
	HolidayMultiplier        *decimal.Decimal

	// FixedPay is added to gross as-is (salaried pay).
	FixedPay decimal.Decimal
	Bonuses  decimal.Decimal

	// DeductionAmount wins over DeductionRate when both are set.
	DeductionAmount *decimal.Decimal
	DeductionRate   *decimal.Decimal
}

// Breakdown is the result of a pay calculation.
type Breakdown struct {
	Hours                    HourBuckets
	TotalHours               decimal.Decimal
	HourlyRate               decimal.Decimal
	OvertimeMultiplier       decimal.Decimal
	DoubleOvertimeMultiplier decimal.Decimal
	HolidayMultiplier        decimal.Decimal

	RegularPay        decimal.Decimal
	OvertimePay       decimal.Decimal
	DoubleOvertimePay decimal.Decimal
	PTOPay            decimal.Decimal
	SickPay           decimal.Decimal
	HolidayPay        decimal.Decimal
	FixedPay          decimal.Decimal
	Bonuses           decimal.Decimal

	GrossPay        decimal.Decimal
	TotalDeductions decimal.Decimal
	NetPay          decimal.Decimal
}

// Calculate computes the pay breakdown. Only the per-bucket pay amounts and the
// rate-based deduction are rounded (half away from zero, 2 places).
func Calculate(in CalculationInput) Breakdown {
	otMul := orDefault(in.OvertimeMultiplier, DefaultOvertimeMultiplier)
	dotMul := orDefault(in.DoubleOvertimeMultiplier, DefaultDoubleOvertimeMultiplier)
	holMul := orDefault(in.HolidayMultiplier, DefaultHolidayMultiplier)
	rate := in.HourlyRate

	b := Breakdown{
		Hours:                    in.Hours,
		TotalHours:               in.Hours.Total(),
		HourlyRate:               rate,
		OvertimeMultiplier:       otMul,
		DoubleOvertimeMultiplier: dotMul,
		HolidayMultiplier:        holMul,
		RegularPay:               money(in.Hours.Regular.Mul(rate)),
		OvertimePay:              money(in.Hours.Overtime.Mul(rate).Mul(otMul)),
		DoubleOvertimePay:        money(in.Hours.DoubleOvertime.Mul(rate).Mul(dotMul)),
		PTOPay:                   money(in.Hours.PTO.Mul(rate)),
		SickPay:                  money(in.Hours.Sick.Mul(rate)),
		HolidayPay:               money(in.Hours.Holiday.Mul(rate).Mul(holMul)),
		FixedPay:                 in.FixedPay,
		Bonuses:                  in.Bonuses,
	}

	b.GrossPay = b.RegularPay.
		Add(b.OvertimePay).
		Add(b.DoubleOvertimePay).
		Add(b.PTOPay).
		Add(b.SickPay).
		Add(b.HolidayPay).
		Add(b.FixedPay).
		Add(b.Bonuses)

	switch {
	case in.DeductionAmount != nil:
		b.TotalDeductions = *in.DeductionAmount
	case in.DeductionRate != nil:
		b.TotalDeductions = money(b.GrossPay.Mul(clampRate(*in.DeductionRate)))
	default:
		b.TotalDeductions = decimal.Zero
	}

	b.NetPay = b.GrossPay.Sub(b.TotalDeductions)
	return b
}

// money rounds half away from zero to currency precision.
func money(d decimal.Decimal) decimal.Decimal {
	return d.Round(currencyPlaces)
}

func orDefault(v *decimal.Decimal, def decimal.Decimal) decimal.Decimal {
	if v == nil {
		return def
	}
	return *v
}

func clampRate(r decimal.Decimal) decimal.Decimal {
	if r.IsNegative() {
		return decimal.Zero
	}
	if r.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return r
}

// IsValidRate reports whether r is a fraction in [0, 1].
func IsValidRate(r decimal.Decimal) bool {
	return !r.IsNegative() && r.LessThanOrEqual(decimal.NewFromInt(1))
}
