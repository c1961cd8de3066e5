package payroll

import "time"

const (
	weeklyPayDelayDays = 5
	monthlyPayDay      = 5
)

// PeriodBounds describes the calendar range of a pay period.
type PeriodBounds struct {
	Frequency    Frequency
	Start        time.Time
	End          time.Time
	PayDate      time.Time
	PeriodNumber int
	Year         int
}

// WeekBoundsFor returns the Monday..Sunday week containing date and its ISO week number.
func WeekBoundsFor(date time.Time) (start, end time.Time, week int) {
	d := DateOf(date)
	offset := (int(d.Weekday()) + 6) % 7
	start = d.AddDate(0, 0, -offset)
	end = start.AddDate(0, 0, 6)
	_, week = start.ISOWeek()
	return start, end, week
}

// MonthBoundsFor returns the first and last day of date's month and the month number.
func MonthBoundsFor(date time.Time) (start, end time.Time, month int) {
	d := DateOf(date)
	start = time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, -1)
	return start, end, int(d.Month())
}

// BoundsFor resolves the period of the given frequency that contains date.
// Weekly periods are paid 5 days after they end, monthly ones on the 5th of the next month.
// Weekly periods carry the ISO year of their Monday.
func BoundsFor(frequency Frequency, date time.Time) PeriodBounds {
	if frequency == FrequencyMonthly {
		start, end, month := MonthBoundsFor(date)
		return PeriodBounds{
			Frequency:    FrequencyMonthly,
			Start:        start,
			End:          end,
			PayDate:      time.Date(start.Year(), start.Month()+1, monthlyPayDay, 0, 0, 0, 0, time.UTC),
			PeriodNumber: month,
			Year:         start.Year(),
		}
	}

	start, end, week := WeekBoundsFor(date)
	isoYear, _ := start.ISOWeek()
	return PeriodBounds{
		Frequency:    FrequencyWeekly,
		Start:        start,
		End:          end,
		PayDate:      end.AddDate(0, 0, weeklyPayDelayDays),
		PeriodNumber: week,
		Year:         isoYear,
	}
}

// FrequencyFor maps a pay type to the period frequency it is paid on.
func FrequencyFor(payType PayType) Frequency {
	if payType == PayTypeSalaried {
		return FrequencyMonthly
	}
	return FrequencyWeekly
}
