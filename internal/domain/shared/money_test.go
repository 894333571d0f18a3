package shared

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	cases := []struct {
		name     string
		amount   string
		currency string
		wantErr  error
	}{
		{"valid usd", "5000.00", "USD", nil},
		{"zero", "0", "EUR", nil},
		{"lowercase code", "10", "idr", nil},
		{"negative", "-0.01", "USD", ErrNegativeAmount},
		{"unsupported", "10", "XYZ", ErrUnsupportedCurrency},
		{"empty currency", "10", "", ErrUnsupportedCurrency},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m, err := NewMoney(decimal.RequireFromString(c.amount), c.currency)
			if c.wantErr != nil {
				assert.ErrorIs(t, err, c.wantErr)
				return
			}
			require.NoError(t, err)
			assert.False(t, m.Amount().IsNegative())
		})
	}
}

func TestMoney_Add(t *testing.T) {
	a := MustMoney("100.50", "USD")
	b := MustMoney("0.50", "USD")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Equal(MustMoney("101", "USD")))
	assert.Equal(t, "100.50 USD", a.String(), "operands are not mutated")

	_, err = a.Add(MustMoney("1", "EUR"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestMoney_Subtract(t *testing.T) {
	a := MustMoney("6000.00", "USD")

	diff, err := a.Subtract(MustMoney("454.54", "USD"))
	require.NoError(t, err)
	assert.Equal(t, "5545.46 USD", diff.String())

	zero, err := a.Subtract(a)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = a.Subtract(MustMoney("6000.01", "USD"))
	assert.ErrorIs(t, err, ErrNegativeResult)

	_, err = a.Subtract(MustMoney("1", "GBP"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestMoney_Multiply(t *testing.T) {
	rate := MustMoney("25.00", "USD")

	amount, err := rate.Multiply(decimal.NewFromInt(176))
	require.NoError(t, err)
	assert.Equal(t, "4400.00 USD", amount.String())

	rounded, err := MustMoney("10.005", "USD").Multiply(decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, "10.01 USD", rounded.String())

	_, err = rate.Multiply(decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestMoney_Divide(t *testing.T) {
	salary := MustMoney("5000.00", "USD")

	daily, err := salary.Divide(decimal.NewFromInt(22))
	require.NoError(t, err)
	assert.Equal(t, "227.27 USD", daily.String())

	half, err := MustMoney("0.05", "USD").Divide(decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.Equal(t, "0.03 USD", half.String(), "rounds half up")

	_, err = salary.Divide(decimal.Zero)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestMoney_Comparisons(t *testing.T) {
	small := MustMoney("1", "USD")
	big := MustMoney("2", "USD")

	lt, err := small.LessThan(big)
	require.NoError(t, err)
	assert.True(t, lt)

	le, err := small.LessThanOrEqual(MustMoney("1.00", "USD"))
	require.NoError(t, err)
	assert.True(t, le)

	gt, err := big.GreaterThan(small)
	require.NoError(t, err)
	assert.True(t, gt)

	ge, err := small.GreaterThanOrEqual(big)
	require.NoError(t, err)
	assert.False(t, ge)

	other := MustMoney("1", "EUR")
	_, err = small.LessThan(other)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
	_, err = small.LessThanOrEqual(other)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
	_, err = small.GreaterThan(other)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
	_, err = small.GreaterThanOrEqual(other)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestMoney_JSON(t *testing.T) {
	data, err := json.Marshal(MustMoney("5000", "USD"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"5000.00","currency":"USD"}`, string(data))

	var m Money
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"12.34","currency":"EUR"}`), &m))
	assert.Equal(t, "12.34 EUR", m.String())

	err = json.Unmarshal([]byte(`{"amount":"-1","currency":"EUR"}`), &m)
	assert.ErrorIs(t, err, ErrNegativeAmount)
}
