package payroll

import (
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/shared"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== REQUEST DTOs ==========

type CreatePayrollRequest struct {
	EmployeeID  string  `json:"employee_id"`
	PeriodType  string  `json:"period_type"`
	PeriodStart string  `json:"period_start"`
	PeriodEnd   string  `json:"period_end"`
	Notes       *string `json:"notes,omitempty"`

	// Parsed by Validate
	Period PayrollPeriod `json:"-"`
}

func (r *CreatePayrollRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}

	periodType, err := ParsePeriodType(r.PeriodType)
	if err != nil {
		errs = append(errs, validator.ValidationError{Field: "period_type", Message: "must be WEEKLY, BIWEEKLY or MONTHLY"})
	}

	start, okStart := validator.IsValidDate(r.PeriodStart)
	if !okStart {
		errs = append(errs, validator.ValidationError{Field: "period_start", Message: "must be a date in YYYY-MM-DD format"})
	}
	end, okEnd := validator.IsValidDate(r.PeriodEnd)
	if !okEnd {
		errs = append(errs, validator.ValidationError{Field: "period_end", Message: "must be a date in YYYY-MM-DD format"})
	}
	if okStart && okEnd && end.Before(start) {
		errs = append(errs, validator.ValidationError{Field: "period_end", Message: "must not be before period_start"})
	}

	if r.Notes != nil && !validator.MaxLength(*r.Notes, 1000) {
		errs = append(errs, validator.ValidationError{Field: "notes", Message: "must not exceed 1000 characters"})
	}

	if len(errs) > 0 {
		return errs
	}

	r.Period, err = NewPayrollPeriod(periodType, start, end)
	return err
}

type CreateMonthlyPayrollRequest struct {
	EmployeeID string  `json:"employee_id"`
	Year       int     `json:"year"`
	Month      int     `json:"month"`
	Notes      *string `json:"notes,omitempty"`
}

func (r *CreateMonthlyPayrollRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}
	if r.Month < 1 || r.Month > 12 {
		errs = append(errs, validator.ValidationError{Field: "month", Message: "must be between 1 and 12"})
	}
	if r.Year < 1900 || r.Year > 9999 {
		errs = append(errs, validator.ValidationError{Field: "year", Message: "must be between 1900 and 9999"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type CalculatePayrollRequest struct {
	// WorkingDays overrides the Monday-Friday count for the period.
	WorkingDays *int `json:"working_days,omitempty"`
}

func (r *CalculatePayrollRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.WorkingDays != nil && *r.WorkingDays <= 0 {
		errs = append(errs, validator.ValidationError{Field: "working_days", Message: "must be greater than 0"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type AddLineRequest struct {
	LineType    string          `json:"line_type"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Currency    string          `json:"currency"`
	ReferenceID *string         `json:"reference_id,omitempty"`
}

func (r *AddLineRequest) Validate() error {
	var errs validator.ValidationErrors

	if _, err := ParseLineType(r.LineType); err != nil {
		errs = append(errs, validator.ValidationError{Field: "line_type", Message: "is not a known line type"})
	}
	if validator.IsEmpty(r.Description) {
		errs = append(errs, validator.ValidationError{Field: "description", Message: "is required"})
	}
	if !validator.MaxLength(r.Description, 255) {
		errs = append(errs, validator.ValidationError{Field: "description", Message: "must not exceed 255 characters"})
	}
	if r.Quantity.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "quantity", Message: "must be non-negative"})
	}
	if r.Rate.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "rate", Message: "must be non-negative"})
	}
	if r.Currency != "" && !shared.IsSupportedCurrency(r.Currency) {
		errs = append(errs, validator.ValidationError{Field: "currency", Message: "is not supported"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ToLine prices the request as rate * quantity. An empty currency means USD.
func (r *AddLineRequest) ToLine() (PayrollLine, error) {
	lineType, err := ParseLineType(r.LineType)
	if err != nil {
		return PayrollLine{}, err
	}
	currency := r.Currency
	if currency == "" {
		currency = shared.DefaultCurrency
	}
	rate, err := shared.NewMoney(r.Rate, currency)
	if err != nil {
		return PayrollLine{}, err
	}
	amount, err := rate.Multiply(r.Quantity)
	if err != nil {
		return PayrollLine{}, err
	}
	return NewPayrollLine(lineType, r.Description, r.Quantity, rate, amount, r.ReferenceID)
}

type ApprovePayrollRequest struct {
	ApprovedBy string `json:"approved_by"`
}

func (r *ApprovePayrollRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ApprovedBy) {
		errs = append(errs, validator.ValidationError{Field: "approved_by", Message: "is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type MarkAsPaidRequest struct {
	PaymentReference string `json:"payment_reference"`
}

func (r *MarkAsPaidRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.PaymentReference) {
		errs = append(errs, validator.ValidationError{Field: "payment_reference", Message: "is required"})
	}
	if !validator.MaxLength(r.PaymentReference, 255) {
		errs = append(errs, validator.ValidationError{Field: "payment_reference", Message: "must not exceed 255 characters"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RunMonthEndRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (r *RunMonthEndRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Month < 1 || r.Month > 12 {
		errs = append(errs, validator.ValidationError{Field: "month", Message: "must be between 1 and 12"})
	}
	if r.Year < 1900 || r.Year > 9999 {
		errs = append(errs, validator.ValidationError{Field: "year", Message: "must be between 1900 and 9999"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ListPayrollFilter struct {
	EmployeeID *string
	Page       int
	Limit      int
}

// Normalize applies page 1 and limit 20 defaults and caps limit at 100.
func (f *ListPayrollFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
}

func (f ListPayrollFilter) Skip() int {
	return (f.Page - 1) * f.Limit
}

// ========== RESPONSE DTOs ==========

type PayrollLineResponse struct {
	LineType    LineType        `json:"line_type"`
	Category    LineCategory    `json:"category"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        shared.Money    `json:"rate"`
	Amount      shared.Money    `json:"amount"`
	ReferenceID *string         `json:"reference_id,omitempty"`
}

type PayrollResponse struct {
	ID               string                `json:"id"`
	EmployeeID       string                `json:"employee_id"`
	PeriodType       PeriodType            `json:"period_type"`
	PeriodStart      string                `json:"period_start"`
	PeriodEnd        string                `json:"period_end"`
	Status           PayrollStatus         `json:"status"`
	Lines            []PayrollLineResponse `json:"lines"`
	Summary          *PayrollSummary       `json:"summary,omitempty"`
	ApprovedBy       *string               `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time            `json:"approved_at,omitempty"`
	ProcessedAt      *time.Time            `json:"processed_at,omitempty"`
	PaidAt           *time.Time            `json:"paid_at,omitempty"`
	PaymentReference *string               `json:"payment_reference,omitempty"`
	Notes            *string               `json:"notes,omitempty"`
	Version          int                   `json:"version"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

func NewPayrollResponse(p *Payroll) PayrollResponse {
	s := p.Snapshot()
	lines := make([]PayrollLineResponse, 0, len(s.Lines))
	for _, l := range s.Lines {
		lines = append(lines, PayrollLineResponse{
			LineType:    l.Type,
			Category:    l.Type.Category(),
			Description: l.Description,
			Quantity:    l.Quantity,
			Rate:        l.Rate,
			Amount:      l.Amount,
			ReferenceID: l.ReferenceID,
		})
	}
	return PayrollResponse{
		ID:               s.ID,
		EmployeeID:       s.EmployeeID,
		PeriodType:       s.Period.Type,
		PeriodStart:      s.Period.StartDate.Format(shared.DateLayout),
		PeriodEnd:        s.Period.EndDate.Format(shared.DateLayout),
		Status:           s.Status,
		Lines:            lines,
		Summary:          s.Summary,
		ApprovedBy:       s.ApprovedBy,
		ApprovedAt:       s.ApprovedAt,
		ProcessedAt:      s.ProcessedAt,
		PaidAt:           s.PaidAt,
		PaymentReference: s.PaymentReference,
		Notes:            s.Notes,
		Version:          s.Version,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

type ListPayrollResponse struct {
	Payrolls []PayrollResponse `json:"payrolls"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

// MonthEndResult lists payroll IDs in Created and Recalculated, and employee
// IDs in Skipped and Failed.
type MonthEndResult struct {
	Year         int      `json:"year"`
	Month        int      `json:"month"`
	Created      []string `json:"created"`
	Recalculated []string `json:"recalculated"`
	Skipped      []string `json:"skipped"`
	Failed       []string `json:"failed"`
}
