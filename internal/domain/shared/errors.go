package shared

import "errors"

var (
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrNegativeAmount      = errors.New("amount cannot be negative")
	ErrCurrencyMismatch    = errors.New("currency mismatch")
	ErrNegativeResult      = errors.New("operation would produce a negative amount")
	ErrDivisionByZero      = errors.New("division by zero")
	ErrInvalidDateRange    = errors.New("start date must not be after end date")
)
