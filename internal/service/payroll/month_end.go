package payroll

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
)

// MonthEndJob creates and calculates a monthly payroll for every active
// employee on the last day of the month.
type MonthEndJob struct {
	payrolls  payroll.PayrollService
	directory payroll.EmployeeDirectory
	periods   payroll.PeriodService
	now       func() time.Time
}

func NewMonthEndJob(payrolls payroll.PayrollService, directory payroll.EmployeeDirectory) *MonthEndJob {
	return &MonthEndJob{
		payrolls:  payrolls,
		directory: directory,
		periods:   payroll.NewPeriodService(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run is registered on the daily scheduler and is a no-op on every day but the last of the month.
func (j *MonthEndJob) Run(ctx context.Context) error {
	today := j.now()
	if today.AddDate(0, 0, 1).Month() == today.Month() {
		return nil
	}

	slog.Info("Cron: Starting month-end payroll job", "year", today.Year(), "month", int(today.Month()))
	result, err := j.RunForMonth(ctx, today.Year(), int(today.Month()))
	if err != nil {
		return err
	}
	slog.Info("Cron: Month-end payroll job completed",
		"created", len(result.Created),
		"recalculated", len(result.Recalculated),
		"skipped", len(result.Skipped),
		"failed", len(result.Failed),
	)
	return nil
}

// RunForMonth processes one month. Failures for a single employee are logged
// and recorded in the result; they never stop the batch. A DRAFT payroll left
// behind by an earlier failed calculation is recalculated rather than skipped.
func (j *MonthEndJob) RunForMonth(ctx context.Context, year, month int) (payroll.MonthEndResult, error) {
	result := payroll.MonthEndResult{
		Year:         year,
		Month:        month,
		Created:      []string{},
		Recalculated: []string{},
		Skipped:      []string{},
		Failed:       []string{},
	}

	period, err := j.periods.MonthlyPeriod(year, month)
	if err != nil {
		return result, err
	}

	employeeIDs, err := j.directory.ListActiveEmployeeIDs(ctx, period.EndDate)
	if err != nil {
		return result, err
	}

	for _, employeeID := range employeeIDs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		created, err := j.payrolls.CreateMonthly(ctx, payroll.CreateMonthlyPayrollRequest{
			EmployeeID: employeeID,
			Year:       year,
			Month:      month,
		})
		switch {
		case errors.Is(err, payroll.ErrPayrollAlreadyExists):
			j.resumeExisting(ctx, employeeID, period, &result)
			continue
		case errors.Is(err, payroll.ErrNotEligible):
			slog.Info("Month-end payroll skipped", "employee_id", employeeID, "reason", err)
			result.Skipped = append(result.Skipped, employeeID)
			continue
		case err != nil:
			slog.Error("Month-end payroll creation failed", "employee_id", employeeID, "error", err)
			result.Failed = append(result.Failed, employeeID)
			continue
		}

		if _, err := j.payrolls.Calculate(ctx, created.ID, payroll.CalculatePayrollRequest{}); err != nil {
			slog.Error("Month-end payroll calculation failed", "employee_id", employeeID, "payroll_id", created.ID, "error", err)
			result.Failed = append(result.Failed, employeeID)
			continue
		}

		slog.Info("Month-end payroll created", "employee_id", employeeID, "payroll_id", created.ID)
		result.Created = append(result.Created, created.ID)
	}

	return result, nil
}

// resumeExisting recalculates the period's payroll when it is still DRAFT and
// skips it otherwise.
func (j *MonthEndJob) resumeExisting(ctx context.Context, employeeID string, period payroll.PayrollPeriod, result *payroll.MonthEndResult) {
	existing, err := j.payrolls.GetForPeriod(ctx, employeeID, period)
	if err != nil {
		slog.Error("Month-end payroll lookup failed", "employee_id", employeeID, "error", err)
		result.Failed = append(result.Failed, employeeID)
		return
	}

	if existing.Status != payroll.PayrollStatusDraft {
		slog.Info("Month-end payroll skipped", "employee_id", employeeID, "payroll_id", existing.ID, "status", existing.Status)
		result.Skipped = append(result.Skipped, employeeID)
		return
	}

	if _, err := j.payrolls.Calculate(ctx, existing.ID, payroll.CalculatePayrollRequest{}); err != nil {
		slog.Error("Month-end payroll recalculation failed", "employee_id", employeeID, "payroll_id", existing.ID, "error", err)
		result.Failed = append(result.Failed, employeeID)
		return
	}

	slog.Info("Month-end payroll recalculated", "employee_id", employeeID, "payroll_id", existing.ID)
	result.Recalculated = append(result.Recalculated, existing.ID)
}
