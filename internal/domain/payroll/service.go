package payroll

import "context"

type PayrollService interface {
	Create(ctx context.Context, req CreatePayrollRequest) (PayrollResponse, error)
	CreateMonthly(ctx context.Context, req CreateMonthlyPayrollRequest) (PayrollResponse, error)
	Calculate(ctx context.Context, id string, req CalculatePayrollRequest) (PayrollResponse, error)
	AddLine(ctx context.Context, id string, req AddLineRequest) (PayrollResponse, error)
	Approve(ctx context.Context, id string, req ApprovePayrollRequest) (PayrollResponse, error)
	Process(ctx context.Context, id string) (PayrollResponse, error)
	MarkAsPaid(ctx context.Context, id string, req MarkAsPaidRequest) (PayrollResponse, error)
	Cancel(ctx context.Context, id string) (PayrollResponse, error)
	Get(ctx context.Context, id string) (PayrollResponse, error)
	GetForPeriod(ctx context.Context, employeeID string, period PayrollPeriod) (PayrollResponse, error)
	List(ctx context.Context, filter ListPayrollFilter) (ListPayrollResponse, error)
	Delete(ctx context.Context, id string) error
}
