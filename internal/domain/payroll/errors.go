package payroll

import (
	"errors"
	"fmt"
)

var (
	ErrPayrollNotFound        = errors.New("payroll not found")
	ErrPayrollAlreadyExists   = errors.New("payroll already exists for this employee and period")
	ErrInvalidTransition      = errors.New("invalid payroll status transition")
	ErrNoLines                = errors.New("cannot calculate payroll without line items")
	ErrNotCalculated          = errors.New("payroll must be calculated first")
	ErrNotEligible            = errors.New("employee not active or no active contract")
	ErrNoActiveContract       = errors.New("no active contract found for employee")
	ErrInvalidPeriod          = errors.New("invalid payroll period")
	ErrInvalidLineType        = errors.New("invalid payroll line type")
	ErrInvalidLine            = errors.New("invalid payroll line")
	ErrInvalidStatus          = errors.New("invalid payroll status")
	ErrInvalidWorkingDays     = errors.New("working days must be positive")
	ErrUnsupportedContract    = errors.New("unsupported contract type")
	ErrCannotDeletePayroll    = errors.New("cannot delete processed or paid payroll")
	ErrConcurrentModification = errors.New("payroll was modified concurrently")
)

// TransitionError reports a state-machine call made from a status that does not allow it.
type TransitionError struct {
	Op     string
	Status PayrollStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s payroll in %s status", e.Op, e.Status)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
