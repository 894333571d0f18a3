package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/shared"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
)

// errorMapping pairs a sentinel with its HTTP status and error code. An empty
// message means err.Error() is sent to the client.
type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Order matters: the first matching sentinel wins.
var errorMappings = []errorMapping{
	{auth.ErrTokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED", ""},
	{auth.ErrInvalidToken, http.StatusUnauthorized, CodeUnauthorized, ""},
	{auth.ErrInsufficientPermissions, http.StatusForbidden, CodeForbidden, ""},

	{payroll.ErrPayrollNotFound, http.StatusNotFound, "PAYROLL_NOT_FOUND", "Payroll not found"},
	{payroll.ErrPayrollAlreadyExists, http.StatusConflict, "PAYROLL_ALREADY_EXISTS", ""},
	{payroll.ErrConcurrentModification, http.StatusConflict, "CONCURRENT_MODIFICATION", "Payroll was modified by another request, reload and retry"},
	{payroll.ErrInvalidTransition, http.StatusBadRequest, "INVALID_TRANSITION", ""},
	{payroll.ErrNotEligible, http.StatusBadRequest, "NOT_ELIGIBLE", ""},
	{payroll.ErrNoActiveContract, http.StatusBadRequest, "NO_ACTIVE_CONTRACT", ""},
	{payroll.ErrUnsupportedContract, http.StatusBadRequest, "UNSUPPORTED_CONTRACT", ""},
	{payroll.ErrNoLines, http.StatusBadRequest, "NO_LINES", ""},
	{payroll.ErrNotCalculated, http.StatusBadRequest, "NOT_CALCULATED", ""},
	{payroll.ErrCannotDeletePayroll, http.StatusBadRequest, "CANNOT_DELETE", ""},
	{payroll.ErrInvalidPeriod, http.StatusBadRequest, CodeBadRequest, ""},
	{payroll.ErrInvalidLineType, http.StatusBadRequest, CodeBadRequest, ""},
	{payroll.ErrInvalidLine, http.StatusBadRequest, CodeBadRequest, ""},
	{payroll.ErrInvalidStatus, http.StatusBadRequest, CodeBadRequest, ""},
	{payroll.ErrInvalidWorkingDays, http.StatusBadRequest, CodeBadRequest, ""},

	{shared.ErrUnsupportedCurrency, http.StatusBadRequest, "MONEY_ERROR", ""},
	{shared.ErrNegativeAmount, http.StatusBadRequest, "MONEY_ERROR", ""},
	{shared.ErrCurrencyMismatch, http.StatusBadRequest, "MONEY_ERROR", ""},
	{shared.ErrNegativeResult, http.StatusBadRequest, "MONEY_ERROR", ""},
	{shared.ErrDivisionByZero, http.StatusBadRequest, "MONEY_ERROR", ""},
	{shared.ErrInvalidDateRange, http.StatusBadRequest, CodeBadRequest, ""},
}

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			Fail(w, m.status, m.code, msg, nil)
			return
		}
	}

	slog.Error("Unhandled error", "error", err)
	InternalServerError(w, "An unexpected error occurred")
}
