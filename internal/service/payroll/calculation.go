package payroll

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var (
	defaultHoursPerWeek = decimal.NewFromInt(40)
	workDaysPerWeek     = decimal.NewFromInt(5)
	hoursScale          = int32(4)
)

// CalculateOptions tune a single calculation run.
type CalculateOptions struct {
	// WorkingDays overrides the Monday-Friday count of the period.
	WorkingDays *int
}

// CalculationService builds payroll lines from HR data, totals them and
// submits the payroll for approval.
type CalculationService struct {
	adapter payroll.DataGatheringAdapter
	periods payroll.PeriodService
}

func NewCalculationService(adapter payroll.DataGatheringAdapter) *CalculationService {
	return &CalculationService{
		adapter: adapter,
		periods: payroll.NewPeriodService(),
	}
}

// Calculate leaves p untouched when eligibility, data gathering or line
// construction fails. Lines are only appended once all of them are built.
func (s *CalculationService) Calculate(ctx context.Context, p *payroll.Payroll, opts CalculateOptions) error {
	if p.Status() != payroll.PayrollStatusDraft {
		return &payroll.TransitionError{Op: "calculate", Status: p.Status()}
	}

	period := p.Period()
	workingDays := s.periods.WorkingDays(period.StartDate, period.EndDate)
	if opts.WorkingDays != nil {
		workingDays = *opts.WorkingDays
	}
	if workingDays <= 0 {
		return fmt.Errorf("%w: %d", payroll.ErrInvalidWorkingDays, workingDays)
	}

	// 1. Eligibility
	eligible, err := s.adapter.ValidatePayrollEligibility(ctx, p.EmployeeID(), period.StartDate)
	if err != nil {
		return fmt.Errorf("validate eligibility: %w", err)
	}
	if !eligible {
		return fmt.Errorf("%w: employee %s on %s", payroll.ErrNotEligible, p.EmployeeID(), period.StartDate.Format(shared.DateLayout))
	}

	// 2. Data gathering
	data, err := s.adapter.GatherAllPayrollData(ctx, p.EmployeeID(), period.StartDate, period.EndDate)
	if err != nil {
		return fmt.Errorf("gather payroll data: %w", err)
	}
	if data.Contract == nil {
		return payroll.ErrNoActiveContract
	}
	contract := *data.Contract

	// 3. Base compensation
	base, err := baseLine(contract, period, workingDays)
	if err != nil {
		return err
	}
	lines := []payroll.PayrollLine{base}

	// 4. Bonuses
	for _, b := range data.Bonuses {
		l, err := bonusLine(b)
		if err != nil {
			return err
		}
		lines = append(lines, l)
	}

	// 5. Absence deduction
	if len(data.Absences) > 0 {
		l, ok, err := s.absenceLine(ctx, p, contract, workingDays)
		if err != nil {
			return err
		}
		if ok {
			lines = append(lines, l)
		}
	}

	// 6. Totals and submission
	for _, l := range lines {
		if err := p.AddLine(l); err != nil {
			return err
		}
	}
	if err := p.Calculate(); err != nil {
		return err
	}
	return p.SubmitForApproval()
}

func contractRate(c payroll.ContractData) (shared.Money, error) {
	currency := c.Currency
	if currency == "" {
		currency = shared.DefaultCurrency
	}
	rate, err := shared.NewMoney(c.RateAmount, currency)
	if err != nil {
		return shared.Money{}, fmt.Errorf("contract %s rate: %w", c.ContractID, err)
	}
	return rate, nil
}

func hoursPerDay(c payroll.ContractData) decimal.Decimal {
	hpw := defaultHoursPerWeek
	if c.HoursPerWeek != nil {
		hpw = *c.HoursPerWeek
	}
	return hpw.Div(workDaysPerWeek)
}

func baseLine(c payroll.ContractData, period payroll.PayrollPeriod, workingDays int) (payroll.PayrollLine, error) {
	rate, err := contractRate(c)
	if err != nil {
		return payroll.PayrollLine{}, err
	}
	ref := c.ContractID

	switch c.ContractType {
	case payroll.ContractTypeFixedMonthly:
		return payroll.NewPayrollLine(
			payroll.LineTypeBaseSalary,
			fmt.Sprintf("Base Salary - %s", period),
			decimal.NewFromInt(1),
			rate,
			rate,
			&ref,
		)
	case payroll.ContractTypeHourly:
		totalHours := hoursPerDay(c).Mul(decimal.NewFromInt(int64(workingDays))).Round(hoursScale)
		amount, err := rate.Multiply(totalHours)
		if err != nil {
			return payroll.PayrollLine{}, err
		}
		return payroll.NewPayrollLine(
			payroll.LineTypeHourlyWage,
			fmt.Sprintf("Hourly Wage - %s hours @ %s/hr", totalHours, rate),
			totalHours,
			rate,
			amount,
			&ref,
		)
	}
	return payroll.PayrollLine{}, fmt.Errorf("%w: %q", payroll.ErrUnsupportedContract, c.ContractType)
}

func bonusLine(b payroll.Bonus) (payroll.PayrollLine, error) {
	currency := b.Currency
	if currency == "" {
		currency = shared.DefaultCurrency
	}
	amount, err := shared.NewMoney(b.Amount, currency)
	if err != nil {
		return payroll.PayrollLine{}, fmt.Errorf("bonus %s: %w", b.ID, err)
	}
	ref := b.ID
	return payroll.NewPayrollLine(
		payroll.LineTypeBonus,
		fmt.Sprintf("%s - %s", b.Type, b.Description),
		decimal.NewFromInt(1),
		amount,
		amount,
		&ref,
	)
}

// dailyRate is salary / working days for monthly contracts and
// rate * hours per day for hourly ones.
func dailyRate(c payroll.ContractData, workingDays int) (shared.Money, error) {
	rate, err := contractRate(c)
	if err != nil {
		return shared.Money{}, err
	}
	switch c.ContractType {
	case payroll.ContractTypeFixedMonthly:
		return rate.Divide(decimal.NewFromInt(int64(workingDays)))
	case payroll.ContractTypeHourly:
		return rate.Multiply(hoursPerDay(c))
	}
	return shared.Money{}, fmt.Errorf("%w: %q", payroll.ErrUnsupportedContract, c.ContractType)
}

func (s *CalculationService) absenceLine(ctx context.Context, p *payroll.Payroll, c payroll.ContractData, workingDays int) (payroll.PayrollLine, bool, error) {
	rate, err := dailyRate(c, workingDays)
	if err != nil {
		return payroll.PayrollLine{}, false, err
	}

	period := p.Period()
	impact, err := s.adapter.CalculateAbsenceImpact(ctx, p.EmployeeID(), period.StartDate, period.EndDate, rate)
	if err != nil {
		return payroll.PayrollLine{}, false, fmt.Errorf("calculate absence impact: %w", err)
	}
	if !impact.DeductionAmount.Amount().IsPositive() {
		return payroll.PayrollLine{}, false, nil
	}

	l, err := payroll.NewPayrollLine(
		payroll.LineTypeAbsenceDeduction,
		fmt.Sprintf("Unpaid Leave Deduction (%d days)", impact.AbsenceDays),
		decimal.NewFromInt(int64(impact.AbsenceDays)),
		rate,
		impact.DeductionAmount,
		nil,
	)
	return l, err == nil, err
}
