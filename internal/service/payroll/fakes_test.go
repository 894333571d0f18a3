package payroll

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/shared"
)

// memRepo keeps snapshots so callers never share aggregate instances.
type memRepo struct {
	mu       sync.Mutex
	order    []string
	rows     map[string]payroll.PayrollSnapshot
	saved    map[string]payroll.PayrollSnapshot
	savedOrd []string
	saveErr  error
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[string]payroll.PayrollSnapshot{}}
}

func (r *memRepo) begin() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = make(map[string]payroll.PayrollSnapshot, len(r.rows))
	for k, v := range r.rows {
		r.saved[k] = v
	}
	r.savedOrd = append([]string(nil), r.order...)
}

func (r *memRepo) rollback() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows, r.order = r.saved, r.savedOrd
}

func (r *memRepo) Save(_ context.Context, p *payroll.Payroll) (*payroll.Payroll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	current, exists := r.rows[p.ID()]
	if exists && current.Version != p.Version() {
		return nil, payroll.ErrConcurrentModification
	}
	if !exists {
		r.order = append(r.order, p.ID())
	}
	p.MarkPersisted(p.Version() + 1)
	r.rows[p.ID()] = p.Snapshot()
	return p, nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*payroll.Payroll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return nil, payroll.ErrPayrollNotFound
	}
	return payroll.Restore(s), nil
}

func (r *memRepo) FindByEmployee(_ context.Context, employeeID string, skip, limit int) ([]*payroll.Payroll, error) {
	return r.find(func(s payroll.PayrollSnapshot) bool { return s.EmployeeID == employeeID }, skip, limit), nil
}

func (r *memRepo) FindAll(_ context.Context, skip, limit int) ([]*payroll.Payroll, error) {
	return r.find(func(payroll.PayrollSnapshot) bool { return true }, skip, limit), nil
}

func (r *memRepo) find(match func(payroll.PayrollSnapshot) bool, skip, limit int) []*payroll.Payroll {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*payroll.Payroll
	for _, id := range r.order {
		s := r.rows[id]
		if !match(s) {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, payroll.Restore(s))
	}
	return out
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return payroll.ErrPayrollNotFound
	}
	delete(r.rows, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *memRepo) ExistsForPeriod(_ context.Context, employeeID string, start, end time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rows {
		if s.Status != payroll.PayrollStatusCancelled && s.EmployeeID == employeeID &&
			s.Period.StartDate.Equal(start) && s.Period.EndDate.Equal(end) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) FindForPeriod(_ context.Context, employeeID string, start, end time.Time) (*payroll.Payroll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rows {
		if s.Status != payroll.PayrollStatusCancelled && s.EmployeeID == employeeID &&
			s.Period.StartDate.Equal(start) && s.Period.EndDate.Equal(end) {
			return payroll.Restore(s), nil
		}
	}
	return nil, payroll.ErrPayrollNotFound
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// fakeTx restores the repository when the unit of work fails.
type fakeTx struct {
	repo   *memRepo
	outbox *memOutbox
}

func (t fakeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.repo.begin()
	var outboxBefore int
	if t.outbox != nil {
		outboxBefore = len(t.outbox.rows)
	}
	if err := fn(ctx); err != nil {
		t.repo.rollback()
		if t.outbox != nil {
			t.outbox.rows = t.outbox.rows[:outboxBefore]
		}
		return err
	}
	return nil
}

type fakeAdapter struct {
	ineligible map[string]bool // keyed by YYYY-MM-DD
	data       payroll.PayrollData
	impact     payroll.AbsenceImpact
	gatherErr  error

	gatherCalls int
	dailyRate   *shared.Money
}

func (a *fakeAdapter) ValidatePayrollEligibility(_ context.Context, _ string, date time.Time) (bool, error) {
	return !a.ineligible[date.Format(shared.DateLayout)], nil
}

func (a *fakeAdapter) GatherAllPayrollData(_ context.Context, _ string, _, _ time.Time) (payroll.PayrollData, error) {
	a.gatherCalls++
	return a.data, a.gatherErr
}

func (a *fakeAdapter) CalculateAbsenceImpact(_ context.Context, _ string, _, _ time.Time, dailyRate shared.Money) (payroll.AbsenceImpact, error) {
	a.dailyRate = &dailyRate
	return a.impact, nil
}

type recordingDispatcher struct {
	events []payroll.DomainEvent
}

func (d *recordingDispatcher) Dispatch(_ context.Context, events []payroll.DomainEvent) {
	d.events = append(d.events, events...)
}

func (d *recordingDispatcher) names() []string {
	out := make([]string, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.EventName())
	}
	return out
}

type memOutbox struct {
	rows      []payroll.StoredEvent
	published map[string]bool
	failed    map[string]int
}

func newMemOutbox() *memOutbox {
	return &memOutbox{published: map[string]bool{}, failed: map[string]int{}}
}

func (o *memOutbox) Append(_ context.Context, events []payroll.DomainEvent) error {
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return err
		}
		o.rows = append(o.rows, payroll.StoredEvent{
			ID:        fmt.Sprintf("evt-%d", len(o.rows)+1),
			Name:      e.EventName(),
			Aggregate: e.AggregateID(),
			Payload:   payload,
			At:        e.OccurredAt(),
		})
	}
	return nil
}

func (o *memOutbox) FetchPending(_ context.Context, limit int) ([]payroll.StoredEvent, error) {
	var out []payroll.StoredEvent
	for _, r := range o.rows {
		if o.published[r.ID] {
			continue
		}
		r.Attempts = o.failed[r.ID]
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (o *memOutbox) MarkPublished(_ context.Context, ids []string) error {
	for _, id := range ids {
		o.published[id] = true
	}
	return nil
}

func (o *memOutbox) MarkFailed(_ context.Context, id string) error {
	o.failed[id]++
	return nil
}

type flakyPublisher struct {
	failFor   string
	published []string
}

func (p *flakyPublisher) Publish(_ context.Context, e payroll.DomainEvent) error {
	if e.EventName() == p.failFor {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, e.EventName())
	return nil
}

type memDirectory struct {
	ids []string
}

func (d memDirectory) ListActiveEmployeeIDs(context.Context, time.Time) ([]string, error) {
	return d.ids, nil
}
