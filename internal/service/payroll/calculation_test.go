package payroll

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func january(t *testing.T) payroll.PayrollPeriod {
	t.Helper()
	p, err := payroll.NewPeriodService().MonthlyPeriod(2024, 1)
	require.NoError(t, err)
	return p
}

func fixedContract(rate string) *payroll.ContractData {
	return &payroll.ContractData{
		ContractID:   "contract-1",
		ContractType: payroll.ContractTypeFixedMonthly,
		RateAmount:   decimal.RequireFromString(rate),
		Currency:     "USD",
	}
}

func hourlyContract(rate string, hoursPerWeek *decimal.Decimal) *payroll.ContractData {
	return &payroll.ContractData{
		ContractID:   "contract-2",
		ContractType: payroll.ContractTypeHourly,
		RateAmount:   decimal.RequireFromString(rate),
		Currency:     "USD",
		HoursPerWeek: hoursPerWeek,
	}
}

func intPtr(v int) *int { return &v }

func TestCalculate_FixedMonthly(t *testing.T) {
	adapter := &fakeAdapter{data: payroll.PayrollData{Contract: fixedContract("5000.00")}}
	p := payroll.Create("emp-1", january(t), nil)

	require.NoError(t, NewCalculationService(adapter).Calculate(context.Background(), p, CalculateOptions{}))

	lines := p.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, payroll.LineTypeBaseSalary, lines[0].Type)
	assert.Equal(t, "Base Salary - MONTHLY: 2024-01-01 to 2024-01-31", lines[0].Description)
	assert.True(t, lines[0].Quantity.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "contract-1", *lines[0].ReferenceID)

	s := p.Summary()
	require.NotNil(t, s)
	assert.Equal(t, "5000.00 USD", s.GrossPay.String())
	assert.Equal(t, "5000.00 USD", s.NetPay.String())
	assert.True(t, s.TotalDeductions.IsZero())
	assert.True(t, s.TotalTaxes.IsZero())
	assert.Equal(t, payroll.PayrollStatusPendingApproval, p.Status())
	assert.Equal(t, 1, adapter.gatherCalls)
}

func TestCalculate_Hourly(t *testing.T) {
	hpw := decimal.NewFromInt(40)
	adapter := &fakeAdapter{data: payroll.PayrollData{Contract: hourlyContract("25.00", &hpw)}}
	p := payroll.Create("emp-1", january(t), nil)

	err := NewCalculationService(adapter).Calculate(context.Background(), p, CalculateOptions{WorkingDays: intPtr(22)})
	require.NoError(t, err)

	lines := p.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, payroll.LineTypeHourlyWage, lines[0].Type)
	assert.True(t, lines[0].Quantity.Equal(decimal.NewFromInt(176)), lines[0].Quantity.String())
	assert.Equal(t, "4400.00 USD", lines[0].Amount.String())
	assert.Equal(t, "4400.00 USD", p.Summary().GrossPay.String())
}

func TestCalculate_HourlyDefaultsToFortyHoursAndPeriodWorkingDays(t *testing.T) {
	adapter := &fakeAdapter{data: payroll.PayrollData{Contract: hourlyContract("10.00", nil)}}
	p := payroll.Create("emp-1", january(t), nil)

	require.NoError(t, NewCalculationService(adapter).Calculate(context.Background(), p, CalculateOptions{}))

	// January 2024 has 23 working days at 8 hours each
	assert.True(t, p.Lines()[0].Quantity.Equal(decimal.NewFromInt(184)))
	assert.Equal(t, "1840.00 USD", p.Summary().GrossPay.String())
}

func TestCalculate_BonusAndAbsence(t *testing.T) {
	adapter := &fakeAdapter{
		data: payroll.PayrollData{
			Contract: fixedContract("5000.00"),
			Bonuses: []payroll.Bonus{{
				ID:          "bonus-1",
				Type:        "PERFORMANCE",
				Amount:      decimal.RequireFromString("1000.00"),
				Currency:    "USD",
				PaymentDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
				Description: "Q4 target",
			}},
			Absences: []payroll.Absence{{ID: "abs-1"}},
		},
		impact: payroll.AbsenceImpact{DeductionAmount: shared.MustMoney("454.54", "USD"), AbsenceDays: 2},
	}
	p := payroll.Create("emp-1", january(t), nil)

	err := NewCalculationService(adapter).Calculate(context.Background(), p, CalculateOptions{WorkingDays: intPtr(22)})
	require.NoError(t, err)

	require.NotNil(t, adapter.dailyRate)
	assert.Equal(t, "227.27 USD", adapter.dailyRate.String())

	lines := p.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, payroll.LineTypeBonus, lines[1].Type)
	assert.Equal(t, "PERFORMANCE - Q4 target", lines[1].Description)
	assert.Equal(t, payroll.LineTypeAbsenceDeduction, lines[2].Type)
	assert.Equal(t, "Unpaid Leave Deduction (2 days)", lines[2].Description)
	assert.True(t, lines[2].Quantity.Equal(decimal.NewFromInt(2)))

	s := p.Summary()
	assert.Equal(t, "6000.00 USD", s.GrossPay.String())
	assert.Equal(t, "454.54 USD", s.TotalDeductions.String())
	assert.Equal(t, "5545.46 USD", s.NetPay.String())
}

func TestCalculate_HourlyAbsenceDailyRate(t *testing.T) {
	hpw := decimal.RequireFromString("37.5")
	adapter := &fakeAdapter{
		data: payroll.PayrollData{
			Contract: hourlyContract("20.00", &hpw),
			Absences: []payroll.Absence{{ID: "abs-1"}},
		},
		impact: payroll.AbsenceImpact{DeductionAmount: shared.MustMoney("150.00", "USD"), AbsenceDays: 1},
	}
	p := payroll.Create("emp-1", january(t), nil)

	require.NoError(t, NewCalculationService(adapter).Calculate(context.Background(), p, CalculateOptions{}))

	// 37.5 / 5 = 7.5 hours per day
	assert.Equal(t, "150.00 USD", adapter.dailyRate.String())
	assert.Len(t, p.Lines(), 2)
}

func TestCalculate_ZeroAbsenceDeductionAddsNoLine(t *testing.T) {
	adapter := &fakeAdapter{
		data: payroll.PayrollData{
			Contract: fixedContract("5000.00"),
			Absences: []payroll.Absence{{ID: "abs-1"}},
		},
		impact: payroll.AbsenceImpact{DeductionAmount: shared.MustMoney("0", "USD")},
	}
	p := payroll.Create("emp-1", january(t), nil)

	require.NoError(t, NewCalculationService(adapter).Calculate(context.Background(), p, CalculateOptions{}))
	assert.Len(t, p.Lines(), 1)
}

func TestCalculate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		adapter *fakeAdapter
		opts    CalculateOptions
		wantErr error
	}{
		{
			name:    "not eligible at period start",
			adapter: &fakeAdapter{ineligible: map[string]bool{"2024-01-01": true}, data: payroll.PayrollData{Contract: fixedContract("5000.00")}},
			wantErr: payroll.ErrNotEligible,
		},
		{
			name:    "no active contract",
			adapter: &fakeAdapter{},
			wantErr: payroll.ErrNoActiveContract,
		},
		{
			name:    "non-positive working days",
			adapter: &fakeAdapter{data: payroll.PayrollData{Contract: fixedContract("5000.00")}},
			opts:    CalculateOptions{WorkingDays: intPtr(0)},
			wantErr: payroll.ErrInvalidWorkingDays,
		},
		{
			name:    "unsupported contract type",
			adapter: &fakeAdapter{data: payroll.PayrollData{Contract: &payroll.ContractData{ContractID: "c", ContractType: "PIECEWORK", RateAmount: decimal.NewFromInt(1)}}},
			wantErr: payroll.ErrUnsupportedContract,
		},
		{
			name:    "unsupported contract currency",
			adapter: &fakeAdapter{data: payroll.PayrollData{Contract: &payroll.ContractData{ContractID: "c", ContractType: payroll.ContractTypeFixedMonthly, RateAmount: decimal.NewFromInt(1), Currency: "XYZ"}}},
			wantErr: shared.ErrUnsupportedCurrency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := payroll.Create("emp-1", january(t), nil)

			err := NewCalculationService(tt.adapter).Calculate(context.Background(), p, tt.opts)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, p.LineCount())
			assert.Nil(t, p.Summary())
			assert.Equal(t, payroll.PayrollStatusDraft, p.Status())
		})
	}
}

func TestCalculate_RejectsNonDraft(t *testing.T) {
	adapter := &fakeAdapter{data: payroll.PayrollData{Contract: fixedContract("5000.00")}}
	svc := NewCalculationService(adapter)
	p := payroll.Create("emp-1", january(t), nil)
	require.NoError(t, svc.Calculate(context.Background(), p, CalculateOptions{}))

	err := svc.Calculate(context.Background(), p, CalculateOptions{})

	assert.ErrorIs(t, err, payroll.ErrInvalidTransition)
	assert.Equal(t, 1, p.LineCount())
}
