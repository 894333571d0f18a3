package payroll

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/shared"
)

// PeriodService builds calendar pay periods and counts working days.
type PeriodService struct{}

func NewPeriodService() PeriodService {
	return PeriodService{}
}

// MonthlyPeriod spans the first to the last calendar day of the month.
func (PeriodService) MonthlyPeriod(year, month int) (PayrollPeriod, error) {
	if month < 1 || month > 12 {
		return PayrollPeriod{}, fmt.Errorf("%w: month must be between 1 and 12", ErrInvalidPeriod)
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	// Day 0 of the next month normalises to the last day of this month.
	end := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC)
	return NewPayrollPeriod(PeriodTypeMonthly, start, end)
}

// WeeklyPeriod spans seven days starting at start.
func (PeriodService) WeeklyPeriod(start time.Time) (PayrollPeriod, error) {
	start = shared.Date(start)
	return NewPayrollPeriod(PeriodTypeWeekly, start, start.AddDate(0, 0, 6))
}

// BiweeklyPeriod spans fourteen days starting at start.
func (PeriodService) BiweeklyPeriod(start time.Time) (PayrollPeriod, error) {
	start = shared.Date(start)
	return NewPayrollPeriod(PeriodTypeBiweekly, start, start.AddDate(0, 0, 13))
}

// WorkingDays counts Monday-Friday days in [start, end]. It returns 0 when end is before start.
func (PeriodService) WorkingDays(start, end time.Time) int {
	start, end = shared.Date(start), shared.Date(end)
	days := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if IsWorkingDay(d) {
			days++
		}
	}
	return days
}

func IsWorkingDay(d time.Time) bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}
