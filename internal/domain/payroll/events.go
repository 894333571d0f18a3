package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event names as published to downstream consumers.
const (
	EventPayrollCreated       = "PayrollCreated"
	EventPayrollCalculated    = "PayrollCalculated"
	EventPayrollApproved      = "PayrollApproved"
	EventPayrollProcessed     = "PayrollProcessed"
	EventPayrollPaid          = "PayrollPaid"
	EventPayrollStatusChanged = "PayrollStatusChanged"
)

// DomainEvent is an immutable fact raised by the Payroll aggregate.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

type eventMeta struct {
	At time.Time `json:"occurred_at"`
}

func (m eventMeta) OccurredAt() time.Time { return m.At }

type PayrollCreated struct {
	eventMeta
	PayrollID   string    `json:"payroll_id"`
	EmployeeID  string    `json:"employee_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

func (e PayrollCreated) EventName() string   { return EventPayrollCreated }
func (e PayrollCreated) AggregateID() string { return e.PayrollID }

type PayrollCalculated struct {
	eventMeta
	PayrollID  string          `json:"payroll_id"`
	EmployeeID string          `json:"employee_id"`
	GrossPay   decimal.Decimal `json:"gross_pay"`
	NetPay     decimal.Decimal `json:"net_pay"`
	Currency   string          `json:"currency"`
}

func (e PayrollCalculated) EventName() string   { return EventPayrollCalculated }
func (e PayrollCalculated) AggregateID() string { return e.PayrollID }

type PayrollApproved struct {
	eventMeta
	PayrollID  string    `json:"payroll_id"`
	EmployeeID string    `json:"employee_id"`
	ApprovedBy string    `json:"approved_by"`
	ApprovedAt time.Time `json:"approved_at"`
}

func (e PayrollApproved) EventName() string   { return EventPayrollApproved }
func (e PayrollApproved) AggregateID() string { return e.PayrollID }

type PayrollProcessed struct {
	eventMeta
	PayrollID   string          `json:"payroll_id"`
	EmployeeID  string          `json:"employee_id"`
	NetPay      decimal.Decimal `json:"net_pay"`
	ProcessedAt time.Time       `json:"processed_at"`
}

func (e PayrollProcessed) EventName() string   { return EventPayrollProcessed }
func (e PayrollProcessed) AggregateID() string { return e.PayrollID }

type PayrollPaid struct {
	eventMeta
	PayrollID        string          `json:"payroll_id"`
	EmployeeID       string          `json:"employee_id"`
	AmountPaid       decimal.Decimal `json:"amount_paid"`
	PaymentReference string          `json:"payment_reference"`
	PaidAt           time.Time       `json:"paid_at"`
}

func (e PayrollPaid) EventName() string   { return EventPayrollPaid }
func (e PayrollPaid) AggregateID() string { return e.PayrollID }

type PayrollStatusChanged struct {
	eventMeta
	PayrollID  string        `json:"payroll_id"`
	EmployeeID string        `json:"employee_id"`
	OldStatus  PayrollStatus `json:"old_status"`
	NewStatus  PayrollStatus `json:"new_status"`
}

func (e PayrollStatusChanged) EventName() string   { return EventPayrollStatusChanged }
func (e PayrollStatusChanged) AggregateID() string { return e.PayrollID }
