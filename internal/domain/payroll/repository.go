package payroll

import (
	"context"
	"encoding/json"
	"time"
)

// PayrollRepository persists Payroll aggregates. Save is atomic per aggregate:
// the payroll row and its lines are written together or not at all.
type PayrollRepository interface {
	Save(ctx context.Context, p *Payroll) (*Payroll, error)
	GetByID(ctx context.Context, id string) (*Payroll, error)
	FindByEmployee(ctx context.Context, employeeID string, skip, limit int) ([]*Payroll, error)
	FindAll(ctx context.Context, skip, limit int) ([]*Payroll, error)
	Delete(ctx context.Context, id string) error

	ExistsForPeriod(ctx context.Context, employeeID string, start, end time.Time) (bool, error)
	// FindForPeriod returns the non-cancelled payroll for the exact period,
	// or ErrPayrollNotFound.
	FindForPeriod(ctx context.Context, employeeID string, start, end time.Time) (*Payroll, error)
}

// Transactor runs fn inside one unit of work. Repositories called with the
// context passed to fn join that unit of work.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher delivers a domain event to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
}

// StoredEvent is a domain event read back from the outbox. Its JSON form is
// the payload recorded when the event was raised.
type StoredEvent struct {
	ID        string
	Name      string
	Aggregate string
	Payload   []byte
	At        time.Time
	Attempts  int
}

func (e StoredEvent) EventName() string { return e.Name }
func (e StoredEvent) AggregateID() string { return e.Aggregate }
func (e StoredEvent) OccurredAt() time.Time { return e.At }

// EmployeeID reads employee_id from the recorded payload. It returns "" when
// the payload carries none or cannot be decoded.
func (e StoredEvent) EmployeeID() string {
	var body struct {
		EmployeeID string `json:"employee_id"`
	}
	if err := json.Unmarshal(e.Payload, &body); err != nil {
		return ""
	}
	return body.EmployeeID
}

func (e StoredEvent) MarshalJSON() ([]byte, error) {
	if len(e.Payload) == 0 {
		return []byte("null"), nil
	}
	return e.Payload, nil
}

// OutboxStore keeps events in the same transaction as the aggregate write.
type OutboxStore interface {
	Append(ctx context.Context, events []DomainEvent) error
	FetchPending(ctx context.Context, limit int) ([]StoredEvent, error)
	MarkPublished(ctx context.Context, ids []string) error
	MarkFailed(ctx context.Context, id string) error
}
