package payroll

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/shared"
	"github.com/google/uuid"
)

// now is replaced in tests to control timestamps.
var now = func() time.Time { return time.Now().UTC() }

// Payroll is the aggregate root for one employee's pay computation for one period.
// State changes go through its methods; fields are not writable from outside the package.
type Payroll struct {
	id               string
	employeeID       string
	period           PayrollPeriod
	status           PayrollStatus
	lines            []PayrollLine
	summary          *PayrollSummary
	approvedBy       *string
	approvedAt       *time.Time
	processedAt      *time.Time
	paidAt           *time.Time
	paymentReference *string
	notes            *string
	version          int
	createdAt        time.Time
	updatedAt        time.Time

	events []DomainEvent
}

// PayrollSnapshot is a plain copy of the aggregate state, used for persistence and responses.
type PayrollSnapshot struct {
	ID               string
	EmployeeID       string
	Period           PayrollPeriod
	Status           PayrollStatus
	Lines            []PayrollLine
	Summary          *PayrollSummary
	ApprovedBy       *string
	ApprovedAt       *time.Time
	ProcessedAt      *time.Time
	PaidAt           *time.Time
	PaymentReference *string
	Notes            *string
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Create starts a new payroll in DRAFT and raises PayrollCreated.
func Create(employeeID string, period PayrollPeriod, notes *string) *Payroll {
	ts := now()
	p := &Payroll{
		id:         uuid.Must(uuid.NewV7()).String(),
		employeeID: employeeID,
		period:     period,
		status:     PayrollStatusDraft,
		notes:      copyString(notes),
		createdAt:  ts,
		updatedAt:  ts,
	}
	p.raise(PayrollCreated{
		eventMeta:   eventMeta{At: ts},
		PayrollID:   p.id,
		EmployeeID:  employeeID,
		PeriodStart: period.StartDate,
		PeriodEnd:   period.EndDate,
	})
	return p
}

// Restore rebuilds an aggregate from persisted state without raising events.
func Restore(s PayrollSnapshot) *Payroll {
	p := &Payroll{
		id:               s.ID,
		employeeID:       s.EmployeeID,
		period:           s.Period,
		status:           s.Status,
		lines:            cloneLines(s.Lines),
		approvedBy:       copyString(s.ApprovedBy),
		approvedAt:       copyTime(s.ApprovedAt),
		processedAt:      copyTime(s.ProcessedAt),
		paidAt:           copyTime(s.PaidAt),
		paymentReference: copyString(s.PaymentReference),
		notes:            copyString(s.Notes),
		version:          s.Version,
		createdAt:        s.CreatedAt,
		updatedAt:        s.UpdatedAt,
	}
	if s.Summary != nil {
		summary := *s.Summary
		p.summary = &summary
	}
	return p
}

func (p *Payroll) ID() string { return p.id }
func (p *Payroll) EmployeeID() string { return p.employeeID }
func (p *Payroll) Period() PayrollPeriod { return p.period }
func (p *Payroll) Status() PayrollStatus { return p.status }
func (p *Payroll) Version() int { return p.version }
func (p *Payroll) CreatedAt() time.Time { return p.createdAt }
func (p *Payroll) UpdatedAt() time.Time { return p.updatedAt }
func (p *Payroll) Lines() []PayrollLine { return cloneLines(p.lines) }
func (p *Payroll) LineCount() int { return len(p.lines) }
func (p *Payroll) PaymentReference() *string { return copyString(p.paymentReference) }

// Summary returns a copy of the last calculated summary, or nil if never calculated.
func (p *Payroll) Summary() *PayrollSummary {
	if p.summary == nil {
		return nil
	}
	s := *p.summary
	return &s
}

func (p *Payroll) Snapshot() PayrollSnapshot {
	return PayrollSnapshot{
		ID:               p.id,
		EmployeeID:       p.employeeID,
		Period:           p.period,
		Status:           p.status,
		Lines:            cloneLines(p.lines),
		Summary:          p.Summary(),
		ApprovedBy:       copyString(p.approvedBy),
		ApprovedAt:       copyTime(p.approvedAt),
		ProcessedAt:      copyTime(p.processedAt),
		PaidAt:           copyTime(p.paidAt),
		PaymentReference: copyString(p.paymentReference),
		Notes:            copyString(p.notes),
		Version:          p.version,
		CreatedAt:        p.createdAt,
		UpdatedAt:        p.updatedAt,
	}
}

// MarkPersisted records the version assigned by the repository after a successful save.
func (p *Payroll) MarkPersisted(version int) {
	p.version = version
}

// AddLine appends a line while the payroll is DRAFT or PENDING_APPROVAL.
func (p *Payroll) AddLine(line PayrollLine) error {
	if p.status != PayrollStatusDraft && p.status != PayrollStatusPendingApproval {
		return &TransitionError{Op: "add lines to", Status: p.status}
	}
	if !line.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidLineType, line.Type)
	}
	p.lines = append(p.lines, line.clone())
	p.updatedAt = now()
	return nil
}

// Calculate recomputes the summary from the current lines and raises PayrollCalculated.
// The previous summary is replaced only when the whole computation succeeds.
func (p *Payroll) Calculate() error {
	if len(p.lines) == 0 {
		return ErrNoLines
	}

	currency := p.lines[0].Amount.Currency()
	gross, err := shared.Zero(currency)
	if err != nil {
		return err
	}
	deductions, taxes := gross, gross

	for _, line := range p.lines {
		switch line.Type.Category() {
		case CategoryIncome:
			gross, err = gross.Add(line.Amount)
		case CategoryDeduction:
			deductions, err = deductions.Add(line.Amount)
		case CategoryTax:
			taxes, err = taxes.Add(line.Amount)
		default:
			err = fmt.Errorf("%w: %q", ErrInvalidLineType, line.Type)
		}
		if err != nil {
			return err
		}
	}

	summary, err := NewPayrollSummary(gross, deductions, taxes)
	if err != nil {
		return err
	}

	ts := now()
	p.summary = &summary
	p.updatedAt = ts
	p.raise(PayrollCalculated{
		eventMeta:  eventMeta{At: ts},
		PayrollID:  p.id,
		EmployeeID: p.employeeID,
		GrossPay:   summary.GrossPay.Amount(),
		NetPay:     summary.NetPay.Amount(),
		Currency:   currency,
	})
	return nil
}

func (p *Payroll) SubmitForApproval() error {
	if p.status != PayrollStatusDraft {
		return &TransitionError{Op: "submit", Status: p.status}
	}
	if p.summary == nil {
		return ErrNotCalculated
	}
	p.changeStatus(PayrollStatusPendingApproval, now())
	return nil
}

func (p *Payroll) Approve(approvedBy string) error {
	if p.status != PayrollStatusPendingApproval {
		return &TransitionError{Op: "approve", Status: p.status}
	}
	ts := now()
	old := p.status
	p.status = PayrollStatusApproved
	p.approvedBy = &approvedBy
	p.approvedAt = &ts
	p.updatedAt = ts
	p.raise(PayrollApproved{
		eventMeta:  eventMeta{At: ts},
		PayrollID:  p.id,
		EmployeeID: p.employeeID,
		ApprovedBy: approvedBy,
		ApprovedAt: ts,
	})
	p.raiseStatusChanged(old, ts)
	return nil
}

func (p *Payroll) Process() error {
	if p.status != PayrollStatusApproved {
		return &TransitionError{Op: "process", Status: p.status}
	}
	if p.summary == nil {
		return ErrNotCalculated
	}
	ts := now()
	old := p.status
	p.status = PayrollStatusProcessed
	p.processedAt = &ts
	p.updatedAt = ts
	p.raise(PayrollProcessed{
		eventMeta:   eventMeta{At: ts},
		PayrollID:   p.id,
		EmployeeID:  p.employeeID,
		NetPay:      p.summary.NetPay.Amount(),
		ProcessedAt: ts,
	})
	p.raiseStatusChanged(old, ts)
	return nil
}

func (p *Payroll) MarkAsPaid(paymentReference string) error {
	if p.status != PayrollStatusProcessed {
		return &TransitionError{Op: "mark as paid", Status: p.status}
	}
	if p.summary == nil {
		return ErrNotCalculated
	}
	ts := now()
	old := p.status
	p.status = PayrollStatusPaid
	p.paymentReference = &paymentReference
	p.paidAt = &ts
	p.updatedAt = ts
	p.raise(PayrollPaid{
		eventMeta:        eventMeta{At: ts},
		PayrollID:        p.id,
		EmployeeID:       p.employeeID,
		AmountPaid:       p.summary.NetPay.Amount(),
		PaymentReference: paymentReference,
		PaidAt:           ts,
	})
	p.raiseStatusChanged(old, ts)
	return nil
}

// Cancel is allowed from every status except PROCESSED and PAID. The
// precondition "status not in {PROCESSED, PAID}" alone would let a CANCELLED
// payroll be cancelled again as a no-op; here CANCELLED is terminal, so a
// second Cancel is rejected and raises no duplicate PayrollStatusChanged.
func (p *Payroll) Cancel() error {
	switch p.status {
	case PayrollStatusProcessed, PayrollStatusPaid, PayrollStatusCancelled:
		return &TransitionError{Op: "cancel", Status: p.status}
	}
	p.changeStatus(PayrollStatusCancelled, now())
	return nil
}

// Events returns a copy of the events raised since the last ClearEvents.
func (p *Payroll) Events() []DomainEvent {
	out := make([]DomainEvent, len(p.events))
	copy(out, p.events)
	return out
}

func (p *Payroll) ClearEvents() {
	p.events = nil
}

func (p *Payroll) changeStatus(to PayrollStatus, ts time.Time) {
	old := p.status
	p.status = to
	p.updatedAt = ts
	p.raiseStatusChanged(old, ts)
}

func (p *Payroll) raiseStatusChanged(old PayrollStatus, ts time.Time) {
	p.raise(PayrollStatusChanged{
		eventMeta:  eventMeta{At: ts},
		PayrollID:  p.id,
		EmployeeID: p.employeeID,
		OldStatus:  old,
		NewStatus:  p.status,
	})
}

func (p *Payroll) raise(e DomainEvent) {
	p.events = append(p.events, e)
}

func cloneLines(lines []PayrollLine) []PayrollLine {
	if lines == nil {
		return nil
	}
	out := make([]PayrollLine, len(lines))
	for i, l := range lines {
		out[i] = l.clone()
	}
	return out
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
