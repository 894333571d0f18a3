package payroll

import "fmt"

// PayrollStatus enum
type PayrollStatus string

const (
	PayrollStatusDraft           PayrollStatus = "DRAFT"
	PayrollStatusPendingApproval PayrollStatus = "PENDING_APPROVAL"
	PayrollStatusApproved        PayrollStatus = "APPROVED"
	PayrollStatusProcessed       PayrollStatus = "PROCESSED"
	PayrollStatusPaid            PayrollStatus = "PAID"
	PayrollStatusCancelled       PayrollStatus = "CANCELLED"
)

func (s PayrollStatus) IsValid() bool {
	switch s {
	case PayrollStatusDraft, PayrollStatusPendingApproval, PayrollStatusApproved,
		PayrollStatusProcessed, PayrollStatusPaid, PayrollStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s PayrollStatus) IsTerminal() bool {
	return s == PayrollStatusPaid || s == PayrollStatusCancelled
}

func ParsePayrollStatus(s string) (PayrollStatus, error) {
	status := PayrollStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}

// PeriodType enum
type PeriodType string

const (
	PeriodTypeWeekly   PeriodType = "WEEKLY"
	PeriodTypeBiweekly PeriodType = "BIWEEKLY"
	PeriodTypeMonthly  PeriodType = "MONTHLY"
)

func (t PeriodType) IsValid() bool {
	switch t {
	case PeriodTypeWeekly, PeriodTypeBiweekly, PeriodTypeMonthly:
		return true
	}
	return false
}

func ParsePeriodType(s string) (PeriodType, error) {
	t := PeriodType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: unknown period type %q", ErrInvalidPeriod, s)
	}
	return t, nil
}

// LineType enum
type LineType string

const (
	LineTypeBaseSalary       LineType = "BASE_SALARY"
	LineTypeHourlyWage       LineType = "HOURLY_WAGE"
	LineTypeOvertime         LineType = "OVERTIME"
	LineTypeBonus            LineType = "BONUS"
	LineTypeCommission       LineType = "COMMISSION"
	LineTypeDeduction        LineType = "DEDUCTION"
	LineTypeTax              LineType = "TAX"
	LineTypeAbsenceDeduction LineType = "ABSENCE_DEDUCTION"
)

// LineCategory is the bucket a line contributes to when totals are computed.
type LineCategory int

const (
	CategoryIncome LineCategory = iota + 1
	CategoryDeduction
	CategoryTax
)

// Category returns the summary bucket for the line type. Unknown types return 0.
func (t LineType) Category() LineCategory {
	switch t {
	case LineTypeBaseSalary, LineTypeHourlyWage, LineTypeOvertime, LineTypeBonus, LineTypeCommission:
		return CategoryIncome
	case LineTypeDeduction, LineTypeAbsenceDeduction:
		return CategoryDeduction
	case LineTypeTax:
		return CategoryTax
	}
	return 0
}

func (c LineCategory) String() string {
	switch c {
	case CategoryIncome:
		return "INCOME"
	case CategoryDeduction:
		return "DEDUCTION"
	case CategoryTax:
		return "TAX"
	}
	return "UNKNOWN"
}

func (c LineCategory) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (t LineType) IsValid() bool { return t.Category() != 0 }

func ParseLineType(s string) (LineType, error) {
	t := LineType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLineType, s)
	}
	return t, nil
}

// ContractType enum, as reported by the contract context.
type ContractType string

const (
	ContractTypeFixedMonthly ContractType = "FIXED_MONTHLY"
	ContractTypeHourly       ContractType = "HOURLY"
)

func (t ContractType) IsValid() bool {
	return t == ContractTypeFixedMonthly || t == ContractTypeHourly
}
