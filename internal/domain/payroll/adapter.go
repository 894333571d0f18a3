package payroll

import (
	"context"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DataGatheringAdapter is the payroll context's narrow view of the employee,
// contract, compensation and absence contexts.
type DataGatheringAdapter interface {
	// ValidatePayrollEligibility is true when the employee is active on date
	// and has an active contract on that date.
	ValidatePayrollEligibility(ctx context.Context, employeeID string, date time.Time) (bool, error)
	GatherAllPayrollData(ctx context.Context, employeeID string, periodStart, periodEnd time.Time) (PayrollData, error)
	CalculateAbsenceImpact(ctx context.Context, employeeID string, start, end time.Time, dailyRate shared.Money) (AbsenceImpact, error)
}

// EmployeeDirectory lists employees eligible for batch payroll runs.
type EmployeeDirectory interface {
	ListActiveEmployeeIDs(ctx context.Context, date time.Time) ([]string, error)
}

// ContractData - Active contract terms at period start
type ContractData struct {
	ContractID   string
	ContractType ContractType
	RateAmount   decimal.Decimal
	Currency     string
	HoursPerWeek *decimal.Decimal
}

// Bonus - Bonus whose payment date falls inside the period
type Bonus struct {
	ID          string
	Type        string
	Amount      decimal.Decimal
	Currency    string
	PaymentDate time.Time
	Description string
}

// Absence - Approved absence overlapping the period. Only its presence matters to the core.
type Absence struct {
	ID        string
	StartDate time.Time
	EndDate   time.Time
}

// PayrollData - Everything gathered for one calculation
type PayrollData struct {
	Contract *ContractData
	Bonuses  []Bonus
	Absences []Absence
}

// AbsenceImpact - Deduction for unpaid absence days
type AbsenceImpact struct {
	DeductionAmount shared.Money
	AbsenceDays     int
}
