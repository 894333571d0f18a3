package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/shared"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// PayrollDataAdapter reads the HR tables owned by the employee, contract,
// compensation and absence contexts. Those tables are external facts to
// payroll, so reads always go to the pool and never join the payroll
// transaction. This also keeps the concurrent reads off a single tx conn.
type PayrollDataAdapter struct {
	db *database.DB
}

func NewPayrollDataAdapter(db *database.DB) *PayrollDataAdapter {
	return &PayrollDataAdapter{db: db}
}

var (
	_ payroll.DataGatheringAdapter = (*PayrollDataAdapter)(nil)
	_ payroll.EmployeeDirectory    = (*PayrollDataAdapter)(nil)
)

// activeOnDate matches employees active on @date with an active contract on @date.
const activeOnDate = `
	e.deleted_at IS NULL
	AND e.hire_date <= @date
	AND (e.termination_date IS NULL OR e.termination_date >= @date)
	AND EXISTS (
		SELECT 1 FROM contracts c
		WHERE c.employee_id = e.id
		  AND c.status = 'ACTIVE'
		  AND c.start_date <= @date
		  AND (c.end_date IS NULL OR c.end_date >= @date)
	)`

func (a *PayrollDataAdapter) ValidatePayrollEligibility(ctx context.Context, employeeID string, date time.Time) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM employees e WHERE e.id = @employee_id AND ` + activeOnDate + `)`
	args := pgx.NamedArgs{"employee_id": employeeID, "date": shared.Date(date)}

	var eligible bool
	if err := a.db.Pool.QueryRow(ctx, query, args).Scan(&eligible); err != nil {
		return false, fmt.Errorf("failed to check payroll eligibility: %w", err)
	}
	return eligible, nil
}

func (a *PayrollDataAdapter) ListActiveEmployeeIDs(ctx context.Context, date time.Time) ([]string, error) {
	query := `SELECT e.id FROM employees e WHERE ` + activeOnDate + ` ORDER BY e.id`

	rows, err := a.db.Pool.Query(ctx, query, pgx.NamedArgs{"date": shared.Date(date)})
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}
	return ids, nil
}

// GatherAllPayrollData runs the contract, bonus and absence reads concurrently.
func (a *PayrollDataAdapter) GatherAllPayrollData(ctx context.Context, employeeID string, periodStart, periodEnd time.Time) (payroll.PayrollData, error) {
	var data payroll.PayrollData
	start, end := shared.Date(periodStart), shared.Date(periodEnd)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		contract, err := a.activeContract(gCtx, employeeID, start)
		if err != nil {
			return err
		}
		data.Contract = contract
		return nil
	})

	g.Go(func() error {
		bonuses, err := a.bonusesInPeriod(gCtx, employeeID, start, end)
		if err != nil {
			return err
		}
		data.Bonuses = bonuses
		return nil
	})

	g.Go(func() error {
		absences, err := a.approvedAbsences(gCtx, employeeID, start, end, false)
		if err != nil {
			return err
		}
		data.Absences = absences
		return nil
	})

	if err := g.Wait(); err != nil {
		return payroll.PayrollData{}, err
	}
	return data, nil
}

// activeContract returns nil when no contract is active on date.
func (a *PayrollDataAdapter) activeContract(ctx context.Context, employeeID string, date time.Time) (*payroll.ContractData, error) {
	query := `
		SELECT id, contract_type, rate_amount, currency, hours_per_week
		FROM contracts
		WHERE employee_id = $1
		  AND status = 'ACTIVE'
		  AND start_date <= $2
		  AND (end_date IS NULL OR end_date >= $2)
		ORDER BY start_date DESC
		LIMIT 1
	`
	var (
		c            payroll.ContractData
		contractType string
		hoursPerWeek decimal.NullDecimal
	)
	err := a.db.Pool.QueryRow(ctx, query, employeeID, date).Scan(&c.ContractID, &contractType, &c.RateAmount, &c.Currency, &hoursPerWeek)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active contract: %w", err)
	}
	c.ContractType = payroll.ContractType(contractType)
	if hoursPerWeek.Valid {
		hpw := hoursPerWeek.Decimal
		c.HoursPerWeek = &hpw
	}
	return &c, nil
}

func (a *PayrollDataAdapter) bonusesInPeriod(ctx context.Context, employeeID string, start, end time.Time) ([]payroll.Bonus, error) {
	query := `
		SELECT id, bonus_type, amount, currency, payment_date, COALESCE(description, '')
		FROM bonuses
		WHERE employee_id = $1
		  AND status = 'APPROVED'
		  AND payment_date BETWEEN $2 AND $3
		ORDER BY payment_date, id
	`
	rows, err := a.db.Pool.Query(ctx, query, employeeID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get bonuses: %w", err)
	}
	defer rows.Close()

	var bonuses []payroll.Bonus
	for rows.Next() {
		var b payroll.Bonus
		if err := rows.Scan(&b.ID, &b.Type, &b.Amount, &b.Currency, &b.PaymentDate, &b.Description); err != nil {
			return nil, fmt.Errorf("failed to scan bonus: %w", err)
		}
		bonuses = append(bonuses, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get bonuses: %w", err)
	}
	return bonuses, nil
}

// approvedAbsences returns approved absences overlapping [start, end].
// With unpaidOnly set, paid leave is excluded.
func (a *PayrollDataAdapter) approvedAbsences(ctx context.Context, employeeID string, start, end time.Time, unpaidOnly bool) ([]payroll.Absence, error) {
	query := `
		SELECT id, start_date, end_date
		FROM absences
		WHERE employee_id = $1
		  AND status = 'APPROVED'
		  AND start_date <= $3
		  AND end_date >= $2
		  AND (NOT $4 OR is_paid = FALSE)
		ORDER BY start_date, id
	`
	rows, err := a.db.Pool.Query(ctx, query, employeeID, start, end, unpaidOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to get absences: %w", err)
	}
	defer rows.Close()

	var absences []payroll.Absence
	for rows.Next() {
		var ab payroll.Absence
		if err := rows.Scan(&ab.ID, &ab.StartDate, &ab.EndDate); err != nil {
			return nil, fmt.Errorf("failed to scan absence: %w", err)
		}
		absences = append(absences, ab)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get absences: %w", err)
	}
	return absences, nil
}

// CalculateAbsenceImpact counts distinct working days of unpaid approved
// absence inside the period and prices them at dailyRate.
func (a *PayrollDataAdapter) CalculateAbsenceImpact(ctx context.Context, employeeID string, start, end time.Time, dailyRate shared.Money) (payroll.AbsenceImpact, error) {
	start, end = shared.Date(start), shared.Date(end)

	absences, err := a.approvedAbsences(ctx, employeeID, start, end, true)
	if err != nil {
		return payroll.AbsenceImpact{}, err
	}

	days := countAbsenceDays(absences, start, end)
	amount, err := dailyRate.Multiply(decimal.NewFromInt(int64(days)))
	if err != nil {
		return payroll.AbsenceImpact{}, err
	}
	return payroll.AbsenceImpact{DeductionAmount: amount, AbsenceDays: days}, nil
}

func countAbsenceDays(absences []payroll.Absence, start, end time.Time) int {
	seen := make(map[time.Time]struct{})
	for _, ab := range absences {
		from, to := shared.Date(ab.StartDate), shared.Date(ab.EndDate)
		if from.Before(start) {
			from = start
		}
		if to.After(end) {
			to = end
		}
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			if payroll.IsWorkingDay(d) {
				seen[d] = struct{}{}
			}
		}
	}
	return len(seen)
}
