package cron

import (
	"context"
	"time"
)

// Runner is a unit of scheduled work.
type Runner interface {
	Run(ctx context.Context) error
}

type PayrollJobs struct {
	monthEnd         Runner
	monthEndEvery    time.Duration
	outboxRelay      Runner
	outboxRelayEvery time.Duration
}

// NewPayrollJobs builds the payroll job set. A nil runner is not registered.
func NewPayrollJobs(monthEnd Runner, monthEndEvery time.Duration, outboxRelay Runner, outboxRelayEvery time.Duration) *PayrollJobs {
	return &PayrollJobs{
		monthEnd:         monthEnd,
		monthEndEvery:    monthEndEvery,
		outboxRelay:      outboxRelay,
		outboxRelayEvery: outboxRelayEvery,
	}
}

func (j *PayrollJobs) RegisterJobs(scheduler *Scheduler) {
	if j.monthEnd != nil {
		scheduler.AddJob("month_end_payroll", j.monthEndEvery, j.monthEnd.Run)
	}
	if j.outboxRelay != nil {
		scheduler.AddJob("payroll_outbox_relay", j.outboxRelayEvery, j.outboxRelay.Run)
	}
}
