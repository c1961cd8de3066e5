package payroll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestBoundsFor_Weekly(t *testing.T) {
	tests := []struct {
		name  string
		input time.Time
		start time.Time
		end   time.Time
		pay   time.Time
		week  int
		year  int
	}{
		{"wednesday", date(2024, 3, 6), date(2024, 3, 4), date(2024, 3, 10), date(2024, 3, 15), 10, 2024},
		{"monday", date(2024, 3, 4), date(2024, 3, 4), date(2024, 3, 10), date(2024, 3, 15), 10, 2024},
		{"sunday", date(2024, 3, 10), date(2024, 3, 4), date(2024, 3, 10), date(2024, 3, 15), 10, 2024},
		{"week crossing new year", date(2024, 12, 31), date(2024, 12, 30), date(2025, 1, 5), date(2025, 1, 10), 1, 2025},
		{"iso week 53", date(2021, 1, 1), date(2020, 12, 28), date(2021, 1, 3), date(2021, 1, 8), 53, 2020},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := BoundsFor(FrequencyWeekly, tt.input)

			assert.Equal(t, FrequencyWeekly, b.Frequency)
			assert.Equal(t, tt.start, b.Start)
			assert.Equal(t, tt.end, b.End)
			assert.Equal(t, tt.pay, b.PayDate)
			assert.Equal(t, tt.week, b.PeriodNumber)
			assert.Equal(t, tt.year, b.Year)
			assert.Equal(t, time.Monday, b.Start.Weekday())
		})
	}
}

func TestBoundsFor_Monthly(t *testing.T) {
	tests := []struct {
		name  string
		input time.Time
		start time.Time
		end   time.Time
		pay   time.Time
		month int
	}{
		{"leap february", date(2024, 2, 14), date(2024, 2, 1), date(2024, 2, 29), date(2024, 3, 5), 2},
		{"leap february last day", date(2024, 2, 29), date(2024, 2, 1), date(2024, 2, 29), date(2024, 3, 5), 2},
		{"common february", date(2023, 2, 28), date(2023, 2, 1), date(2023, 2, 28), date(2023, 3, 5), 2},
		{"december rolls pay date into next year", date(2024, 12, 15), date(2024, 12, 1), date(2024, 12, 31), date(2025, 1, 5), 12},
		{"thirty day month", date(2024, 4, 30), date(2024, 4, 1), date(2024, 4, 30), date(2024, 5, 5), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := BoundsFor(FrequencyMonthly, tt.input)

			assert.Equal(t, tt.start, b.Start)
			assert.Equal(t, tt.end, b.End)
			assert.Equal(t, tt.pay, b.PayDate)
			assert.Equal(t, tt.month, b.PeriodNumber)
			assert.Equal(t, tt.start.Year(), b.Year)
		})
	}
}

func TestBoundsFor_IgnoresTimeOfDay(t *testing.T) {
	late := time.Date(2024, 3, 6, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, BoundsFor(FrequencyWeekly, date(2024, 3, 6)), BoundsFor(FrequencyWeekly, late))
}

func TestPayPeriod_Contains(t *testing.T) {
	p := PayPeriod{StartDate: date(2024, 3, 4), EndDate: date(2024, 3, 10)}

	assert.True(t, p.Contains(date(2024, 3, 4)))
	assert.True(t, p.Contains(time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)))
	assert.False(t, p.Contains(date(2024, 3, 3)))
	assert.False(t, p.Contains(date(2024, 3, 11)))
}

func TestFrequencyFor(t *testing.T) {
	assert.Equal(t, FrequencyMonthly, FrequencyFor(PayTypeSalaried))
	assert.Equal(t, FrequencyWeekly, FrequencyFor(PayTypeHourly))
}
