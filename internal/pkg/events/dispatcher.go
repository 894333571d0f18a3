package events

import (
	"context"
	"log/slog"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
)

// Dispatcher delivers events after a successful commit. Delivery is best
// effort: a failing publisher is logged and never surfaces to the caller.
type Dispatcher struct {
	publisher payroll.EventPublisher
	logger    *slog.Logger
}

func NewDispatcher(publisher payroll.EventPublisher, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{publisher: publisher, logger: logger}
}

func (d *Dispatcher) Dispatch(ctx context.Context, events []payroll.DomainEvent) {
	for _, e := range events {
		if err := d.publisher.Publish(ctx, e); err != nil {
			d.logger.ErrorContext(ctx, "Failed to dispatch event",
				"event", e.EventName(),
				"aggregate_id", e.AggregateID(),
				"error", err,
			)
		}
	}
}

// Publisher exposes the underlying publisher, used by the outbox relay.
func (d *Dispatcher) Publisher() payroll.EventPublisher {
	return d.publisher
}
