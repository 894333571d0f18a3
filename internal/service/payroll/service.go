package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/shared"
)

// EventDispatcher delivers events drained from an aggregate after commit.
type EventDispatcher interface {
	Dispatch(ctx context.Context, events []payroll.DomainEvent)
}

type PayrollServiceImpl struct {
	tx         payroll.Transactor
	repo       payroll.PayrollRepository
	adapter    payroll.DataGatheringAdapter
	calculator *CalculationService
	periods    payroll.PeriodService
	dispatcher EventDispatcher
	outbox     payroll.OutboxStore
}

// NewPayrollService wires the application service. When outbox is nil events
// are dispatched after commit, otherwise they are appended to the outbox in
// the same transaction as the payroll write.
func NewPayrollService(
	tx payroll.Transactor,
	repo payroll.PayrollRepository,
	adapter payroll.DataGatheringAdapter,
	dispatcher EventDispatcher,
	outbox payroll.OutboxStore,
) payroll.PayrollService {
	return &PayrollServiceImpl{
		tx:         tx,
		repo:       repo,
		adapter:    adapter,
		calculator: NewCalculationService(adapter),
		periods:    payroll.NewPeriodService(),
		dispatcher: dispatcher,
		outbox:     outbox,
	}
}

// ========== COMMANDS ==========

func (s *PayrollServiceImpl) Create(ctx context.Context, req payroll.CreatePayrollRequest) (payroll.PayrollResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollResponse{}, err
	}
	return s.createForPeriod(ctx, req.EmployeeID, req.Period, req.Notes)
}

func (s *PayrollServiceImpl) CreateMonthly(ctx context.Context, req payroll.CreateMonthlyPayrollRequest) (payroll.PayrollResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollResponse{}, err
	}
	period, err := s.periods.MonthlyPeriod(req.Year, req.Month)
	if err != nil {
		return payroll.PayrollResponse{}, err
	}
	return s.createForPeriod(ctx, req.EmployeeID, period, req.Notes)
}

// createForPeriod requires the employee to be eligible on both period bounds.
func (s *PayrollServiceImpl) createForPeriod(ctx context.Context, employeeID string, period payroll.PayrollPeriod, notes *string) (payroll.PayrollResponse, error) {
	for _, date := range []time.Time{period.StartDate, period.EndDate} {
		eligible, err := s.adapter.ValidatePayrollEligibility(ctx, employeeID, date)
		if err != nil {
			return payroll.PayrollResponse{}, fmt.Errorf("validate eligibility: %w", err)
		}
		if !eligible {
			return payroll.PayrollResponse{}, fmt.Errorf("%w: employee %s on %s", payroll.ErrNotEligible, employeeID, date.Format(shared.DateLayout))
		}
	}

	var saved *payroll.Payroll
	var pending []payroll.DomainEvent
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.repo.ExistsForPeriod(ctx, employeeID, period.StartDate, period.EndDate)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: employee %s, %s", payroll.ErrPayrollAlreadyExists, employeeID, period)
		}

		saved, pending, err = s.persist(ctx, payroll.Create(employeeID, period, notes))
		return err
	})
	if err != nil {
		return payroll.PayrollResponse{}, err
	}

	s.dispatch(ctx, pending)
	return payroll.NewPayrollResponse(saved), nil
}

func (s *PayrollServiceImpl) Calculate(ctx context.Context, id string, req payroll.CalculatePayrollRequest) (payroll.PayrollResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollResponse{}, err
	}
	return s.mutate(ctx, id, func(ctx context.Context, p *payroll.Payroll) error {
		return s.calculator.Calculate(ctx, p, CalculateOptions{WorkingDays: req.WorkingDays})
	})
}

// AddLine appends a manual line and refreshes the summary when one exists.
func (s *PayrollServiceImpl) AddLine(ctx context.Context, id string, req payroll.AddLineRequest) (payroll.PayrollResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollResponse{}, err
	}
	line, err := req.ToLine()
	if err != nil {
		return payroll.PayrollResponse{}, err
	}
	return s.mutate(ctx, id, func(_ context.Context, p *payroll.Payroll) error {
		if err := p.AddLine(line); err != nil {
			return err
		}
		if p.Summary() != nil {
			return p.Calculate()
		}
		return nil
	})
}

func (s *PayrollServiceImpl) Approve(ctx context.Context, id string, req payroll.ApprovePayrollRequest) (payroll.PayrollResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollResponse{}, err
	}
	return s.mutate(ctx, id, func(_ context.Context, p *payroll.Payroll) error {
		return p.Approve(req.ApprovedBy)
	})
}

func (s *PayrollServiceImpl) Process(ctx context.Context, id string) (payroll.PayrollResponse, error) {
	return s.mutate(ctx, id, func(_ context.Context, p *payroll.Payroll) error {
		return p.Process()
	})
}

func (s *PayrollServiceImpl) MarkAsPaid(ctx context.Context, id string, req payroll.MarkAsPaidRequest) (payroll.PayrollResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollResponse{}, err
	}
	return s.mutate(ctx, id, func(_ context.Context, p *payroll.Payroll) error {
		return p.MarkAsPaid(req.PaymentReference)
	})
}

func (s *PayrollServiceImpl) Cancel(ctx context.Context, id string) (payroll.PayrollResponse, error) {
	return s.mutate(ctx, id, func(_ context.Context, p *payroll.Payroll) error {
		return p.Cancel()
	})
}

func (s *PayrollServiceImpl) Delete(ctx context.Context, id string) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		switch p.Status() {
		case payroll.PayrollStatusProcessed, payroll.PayrollStatusPaid:
			return fmt.Errorf("%w: payroll is %s", payroll.ErrCannotDeletePayroll, p.Status())
		}
		return s.repo.Delete(ctx, id)
	})
}

// ========== QUERIES ==========

func (s *PayrollServiceImpl) Get(ctx context.Context, id string) (payroll.PayrollResponse, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return payroll.PayrollResponse{}, err
	}
	return payroll.NewPayrollResponse(p), nil
}

func (s *PayrollServiceImpl) GetForPeriod(ctx context.Context, employeeID string, period payroll.PayrollPeriod) (payroll.PayrollResponse, error) {
	p, err := s.repo.FindForPeriod(ctx, employeeID, period.StartDate, period.EndDate)
	if err != nil {
		return payroll.PayrollResponse{}, err
	}
	return payroll.NewPayrollResponse(p), nil
}

func (s *PayrollServiceImpl) List(ctx context.Context, filter payroll.ListPayrollFilter) (payroll.ListPayrollResponse, error) {
	filter.Normalize()

	var (
		payrolls []*payroll.Payroll
		err      error
	)
	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		payrolls, err = s.repo.FindByEmployee(ctx, *filter.EmployeeID, filter.Skip(), filter.Limit)
	} else {
		payrolls, err = s.repo.FindAll(ctx, filter.Skip(), filter.Limit)
	}
	if err != nil {
		return payroll.ListPayrollResponse{}, err
	}

	resp := payroll.ListPayrollResponse{
		Payrolls: make([]payroll.PayrollResponse, 0, len(payrolls)),
		Page:     filter.Page,
		Limit:    filter.Limit,
	}
	for _, p := range payrolls {
		resp.Payrolls = append(resp.Payrolls, payroll.NewPayrollResponse(p))
	}
	return resp, nil
}

// ========== HELPERS ==========

// mutate loads the payroll, applies fn and saves it in one transaction.
// Nothing is written when fn fails.
func (s *PayrollServiceImpl) mutate(ctx context.Context, id string, fn func(ctx context.Context, p *payroll.Payroll) error) (payroll.PayrollResponse, error) {
	var saved *payroll.Payroll
	var pending []payroll.DomainEvent
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, p); err != nil {
			return err
		}
		saved, pending, err = s.persist(ctx, p)
		return err
	})
	if err != nil {
		return payroll.PayrollResponse{}, err
	}

	s.dispatch(ctx, pending)
	return payroll.NewPayrollResponse(saved), nil
}

// persist saves p and drains its events. With an outbox the events are
// written in the current transaction and nothing is left to dispatch.
func (s *PayrollServiceImpl) persist(ctx context.Context, p *payroll.Payroll) (*payroll.Payroll, []payroll.DomainEvent, error) {
	events := p.Events()

	saved, err := s.repo.Save(ctx, p)
	if err != nil {
		return nil, nil, err
	}

	if s.outbox != nil && len(events) > 0 {
		if err := s.outbox.Append(ctx, events); err != nil {
			return nil, nil, fmt.Errorf("append outbox: %w", err)
		}
		events = nil
	}

	p.ClearEvents()
	saved.ClearEvents()
	return saved, events, nil
}

func (s *PayrollServiceImpl) dispatch(ctx context.Context, events []payroll.DomainEvent) {
	if s.dispatcher == nil || len(events) == 0 {
		return
	}
	s.dispatcher.Dispatch(ctx, events)
}
