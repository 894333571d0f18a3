package payroll

import (
	"context"
	"errors"
	"testing"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	svc        payroll.PayrollService
	repo       *memRepo
	adapter    *fakeAdapter
	dispatcher *recordingDispatcher
	outbox     *memOutbox
}

func newFixture(withOutbox bool) *serviceFixture {
	f := &serviceFixture{
		repo:       newMemRepo(),
		adapter:    &fakeAdapter{data: payroll.PayrollData{Contract: fixedContract("5000.00")}},
		dispatcher: &recordingDispatcher{},
	}
	var outbox payroll.OutboxStore
	if withOutbox {
		f.outbox = newMemOutbox()
		outbox = f.outbox
	}
	f.svc = NewPayrollService(fakeTx{repo: f.repo, outbox: f.outbox}, f.repo, f.adapter, f.dispatcher, outbox)
	return f
}

func januaryRequest(employeeID string) payroll.CreatePayrollRequest {
	return payroll.CreatePayrollRequest{
		EmployeeID:  employeeID,
		PeriodType:  "MONTHLY",
		PeriodStart: "2024-01-01",
		PeriodEnd:   "2024-01-31",
	}
}

func TestPayrollService_FullLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(false)

	created, err := f.svc.Create(ctx, januaryRequest("emp-1"))
	require.NoError(t, err)
	assert.Equal(t, payroll.PayrollStatusDraft, created.Status)
	assert.Equal(t, 1, created.Version)

	calculated, err := f.svc.Calculate(ctx, created.ID, payroll.CalculatePayrollRequest{})
	require.NoError(t, err)
	assert.Equal(t, payroll.PayrollStatusPendingApproval, calculated.Status)
	require.NotNil(t, calculated.Summary)
	assert.Equal(t, "5000.00 USD", calculated.Summary.NetPay.String())

	approved, err := f.svc.Approve(ctx, created.ID, payroll.ApprovePayrollRequest{ApprovedBy: "manager-1"})
	require.NoError(t, err)
	assert.Equal(t, payroll.PayrollStatusApproved, approved.Status)

	_, err = f.svc.Process(ctx, created.ID)
	require.NoError(t, err)

	paid, err := f.svc.MarkAsPaid(ctx, created.ID, payroll.MarkAsPaidRequest{PaymentReference: "PAY-001"})
	require.NoError(t, err)
	assert.Equal(t, payroll.PayrollStatusPaid, paid.Status)
	assert.Equal(t, "PAY-001", *paid.PaymentReference)
	require.NotNil(t, paid.ApprovedAt)
	require.NotNil(t, paid.ProcessedAt)
	require.NotNil(t, paid.PaidAt)
	assert.False(t, paid.ProcessedAt.Before(*paid.ApprovedAt))
	assert.False(t, paid.PaidAt.Before(*paid.ProcessedAt))
	assert.Equal(t, 5, paid.Version)

	assert.Equal(t, []string{
		payroll.EventPayrollCreated,
		payroll.EventPayrollCalculated,
		payroll.EventPayrollStatusChanged,
		payroll.EventPayrollApproved,
		payroll.EventPayrollStatusChanged,
		payroll.EventPayrollProcessed,
		payroll.EventPayrollStatusChanged,
		payroll.EventPayrollPaid,
		payroll.EventPayrollStatusChanged,
	}, f.dispatcher.names())
}

func TestPayrollService_CreateRejectsDuplicatesAndIneligible(t *testing.T) {
	ctx := context.Background()
	f := newFixture(false)

	_, err := f.svc.Create(ctx, januaryRequest("emp-1"))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, januaryRequest("emp-1"))
	assert.ErrorIs(t, err, payroll.ErrPayrollAlreadyExists)

	f.adapter.ineligible = map[string]bool{"2024-01-31": true}
	_, err = f.svc.Create(ctx, januaryRequest("emp-2"))
	assert.ErrorIs(t, err, payroll.ErrNotEligible)

	assert.Equal(t, 1, f.repo.count())
}

func TestPayrollService_CreateValidatesRequest(t *testing.T) {
	f := newFixture(false)

	_, err := f.svc.Create(context.Background(), payroll.CreatePayrollRequest{})

	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs))
	assert.Zero(t, f.repo.count())
}

func TestPayrollService_CreateMonthly(t *testing.T) {
	f := newFixture(false)

	resp, err := f.svc.CreateMonthly(context.Background(), payroll.CreateMonthlyPayrollRequest{EmployeeID: "emp-1", Year: 2024, Month: 2})

	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", resp.PeriodStart)
	assert.Equal(t, "2024-02-29", resp.PeriodEnd)
	assert.Equal(t, payroll.PeriodTypeMonthly, resp.PeriodType)
}

func TestPayrollService_FailedCalculationPersistsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(false)
	created, err := f.svc.Create(ctx, januaryRequest("emp-1"))
	require.NoError(t, err)
	f.dispatcher.events = nil

	f.adapter.data = payroll.PayrollData{}
	_, err = f.svc.Calculate(ctx, created.ID, payroll.CalculatePayrollRequest{})
	assert.ErrorIs(t, err, payroll.ErrNoActiveContract)

	got, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PayrollStatusDraft, got.Status)
	assert.Empty(t, got.Lines)
	assert.Equal(t, 1, got.Version)
	assert.Empty(t, f.dispatcher.events)
}

func TestPayrollService_AddLineRecalculates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(false)
	created, err := f.svc.Create(ctx, januaryRequest("emp-1"))
	require.NoError(t, err)
	_, err = f.svc.Calculate(ctx, created.ID, payroll.CalculatePayrollRequest{})
	require.NoError(t, err)

	resp, err := f.svc.AddLine(ctx, created.ID, payroll.AddLineRequest{
		LineType:    "TAX",
		Description: "Income tax",
		Quantity:    decimal.NewFromInt(1),
		Rate:        decimal.RequireFromString("750.00"),
		Currency:    "USD",
	})
	require.NoError(t, err)

	require.Len(t, resp.Lines, 2)
	assert.Equal(t, payroll.CategoryTax, resp.Lines[1].Category)
	assert.Equal(t, "750.00 USD", resp.Summary.TotalTaxes.String())
	assert.Equal(t, "4250.00 USD", resp.Summary.NetPay.String())
	assert.Equal(t, payroll.PayrollStatusPendingApproval, resp.Status)
}

func TestPayrollService_InvalidTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(false)
	created, err := f.svc.Create(ctx, januaryRequest("emp-1"))
	require.NoError(t, err)

	_, err = f.svc.Process(ctx, created.ID)
	assert.ErrorIs(t, err, payroll.ErrInvalidTransition)

	_, err = f.svc.Approve(ctx, created.ID, payroll.ApprovePayrollRequest{ApprovedBy: "manager-1"})
	assert.ErrorIs(t, err, payroll.ErrInvalidTransition)

	cancelled, err := f.svc.Cancel(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PayrollStatusCancelled, cancelled.Status)

	_, err = f.svc.Cancel(ctx, created.ID)
	assert.ErrorIs(t, err, payroll.ErrInvalidTransition)
}

func TestPayrollService_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(false)

	_, err := f.svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, payroll.ErrPayrollNotFound)
	_, err = f.svc.Process(ctx, "missing")
	assert.ErrorIs(t, err, payroll.ErrPayrollNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, "missing"), payroll.ErrPayrollNotFound)
}

func TestPayrollService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(false)

	draft, err := f.svc.Create(ctx, januaryRequest("emp-1"))
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, draft.ID))
	assert.Zero(t, f.repo.count())

	p, err := f.svc.Create(ctx, januaryRequest("emp-2"))
	require.NoError(t, err)
	_, err = f.svc.Calculate(ctx, p.ID, payroll.CalculatePayrollRequest{})
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, p.ID, payroll.ApprovePayrollRequest{ApprovedBy: "manager-1"})
	require.NoError(t, err)
	_, err = f.svc.Process(ctx, p.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, p.ID), payroll.ErrCannotDeletePayroll)
	assert.Equal(t, 1, f.repo.count())
}

func TestPayrollService_List(t *testing.T) {
	ctx := context.Background()
	f := newFixture(false)
	for _, emp := range []string{"emp-1", "emp-2", "emp-1"} {
		req := payroll.CreateMonthlyPayrollRequest{EmployeeID: emp, Year: 2024, Month: 1}
		if f.repo.count() == 2 {
			req.Month = 2
		}
		_, err := f.svc.CreateMonthly(ctx, req)
		require.NoError(t, err)
	}

	all, err := f.svc.List(ctx, payroll.ListPayrollFilter{})
	require.NoError(t, err)
	assert.Len(t, all.Payrolls, 3)
	assert.Equal(t, 1, all.Page)
	assert.Equal(t, 20, all.Limit)

	emp := "emp-1"
	mine, err := f.svc.List(ctx, payroll.ListPayrollFilter{EmployeeID: &emp, Page: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, mine.Payrolls, 1)
	assert.Equal(t, "emp-1", mine.Payrolls[0].EmployeeID)

	second, err := f.svc.List(ctx, payroll.ListPayrollFilter{EmployeeID: &emp, Page: 2, Limit: 1})
	require.NoError(t, err)
	require.Len(t, second.Payrolls, 1)
	assert.Equal(t, "2024-02-01", second.Payrolls[0].PeriodStart)
}

func TestPayrollService_OutboxMode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(true)

	created, err := f.svc.Create(ctx, januaryRequest("emp-1"))
	require.NoError(t, err)
	_, err = f.svc.Calculate(ctx, created.ID, payroll.CalculatePayrollRequest{})
	require.NoError(t, err)

	assert.Empty(t, f.dispatcher.events)
	require.Len(t, f.outbox.rows, 3)
	assert.Equal(t, payroll.EventPayrollCreated, f.outbox.rows[0].Name)
	assert.Equal(t, created.ID, f.outbox.rows[0].Aggregate)
}

func TestPayrollService_SaveFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(true)
	f.repo.saveErr = errors.New("connection reset")

	_, err := f.svc.Create(ctx, januaryRequest("emp-1"))

	assert.ErrorContains(t, err, "connection reset")
	assert.Zero(t, f.repo.count())
	assert.Empty(t, f.outbox.rows)
}
