package payroll

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PayrollPeriod - Pay period boundaries, both dates inclusive
type PayrollPeriod struct {
	Type      PeriodType `json:"period_type"`
	StartDate time.Time  `json:"start_date"`
	EndDate   time.Time  `json:"end_date"`
}

func NewPayrollPeriod(periodType PeriodType, start, end time.Time) (PayrollPeriod, error) {
	if !periodType.IsValid() {
		return PayrollPeriod{}, fmt.Errorf("%w: unknown period type %q", ErrInvalidPeriod, periodType)
	}
	r, err := shared.NewClosedDateRange(start, end)
	if err != nil {
		return PayrollPeriod{}, fmt.Errorf("%w: %v", ErrInvalidPeriod, err)
	}
	end, _ = r.End()
	return PayrollPeriod{Type: periodType, StartDate: r.Start(), EndDate: end}, nil
}

func (p PayrollPeriod) Range() shared.DateRange {
	end := p.EndDate
	r, _ := shared.NewDateRange(p.StartDate, &end)
	return r
}

func (p PayrollPeriod) ContainsDate(d time.Time) bool {
	return p.Range().IsActiveAt(d)
}

func (p PayrollPeriod) String() string {
	return fmt.Sprintf("%s: %s to %s", p.Type, p.StartDate.Format(shared.DateLayout), p.EndDate.Format(shared.DateLayout))
}

// PayrollLine - One priced contribution to a payroll
type PayrollLine struct {
	Type        LineType        `json:"line_type"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"` // hours, days, or units
	Rate        shared.Money    `json:"rate"`
	Amount      shared.Money    `json:"amount"`
	ReferenceID *string         `json:"reference_id,omitempty"` // contract, bonus, etc.
}

func NewPayrollLine(lineType LineType, description string, quantity decimal.Decimal, rate, amount shared.Money, referenceID *string) (PayrollLine, error) {
	if !lineType.IsValid() {
		return PayrollLine{}, fmt.Errorf("%w: %q", ErrInvalidLineType, lineType)
	}
	if quantity.IsNegative() {
		return PayrollLine{}, fmt.Errorf("%w: quantity must be non-negative", ErrInvalidLine)
	}
	if rate.Currency() != amount.Currency() {
		return PayrollLine{}, fmt.Errorf("%w: rate %s, amount %s", shared.ErrCurrencyMismatch, rate.Currency(), amount.Currency())
	}
	if referenceID != nil {
		ref := *referenceID
		referenceID = &ref
	}
	return PayrollLine{
		Type:        lineType,
		Description: description,
		Quantity:    quantity,
		Rate:        rate,
		Amount:      amount,
		ReferenceID: referenceID,
	}, nil
}

// CalculateAmount returns rate * quantity.
func (l PayrollLine) CalculateAmount() (shared.Money, error) {
	return l.Rate.Multiply(l.Quantity)
}

func (l PayrollLine) clone() PayrollLine {
	if l.ReferenceID != nil {
		ref := *l.ReferenceID
		l.ReferenceID = &ref
	}
	return l
}

// PayrollSummary - Totals derived from the current line set
type PayrollSummary struct {
	GrossPay        shared.Money `json:"gross_pay"`
	TotalDeductions shared.Money `json:"total_deductions"`
	TotalTaxes      shared.Money `json:"total_taxes"`
	NetPay          shared.Money `json:"net_pay"`
}

// NewPayrollSummary computes net pay as gross - deductions - taxes.
func NewPayrollSummary(gross, deductions, taxes shared.Money) (PayrollSummary, error) {
	afterDeductions, err := gross.Subtract(deductions)
	if err != nil {
		return PayrollSummary{}, err
	}
	net, err := afterDeductions.Subtract(taxes)
	if err != nil {
		return PayrollSummary{}, err
	}
	return PayrollSummary{
		GrossPay:        gross,
		TotalDeductions: deductions,
		TotalTaxes:      taxes,
		NetPay:          net,
	}, nil
}

func (s PayrollSummary) Currency() string { return s.GrossPay.Currency() }

func (s PayrollSummary) String() string {
	return fmt.Sprintf("Gross: %s, Deductions: %s, Taxes: %s, Net: %s", s.GrossPay, s.TotalDeductions, s.TotalTaxes, s.NetPay)
}
