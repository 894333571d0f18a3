package payroll

import (
	"context"
	"log/slog"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
)

const defaultRelayBatchSize = 100

// OutboxRelay publishes pending outbox rows. Rows that fail stay pending and
// are retried on the next run, so consumers may see an event more than once.
type OutboxRelay struct {
	tx        payroll.Transactor
	store     payroll.OutboxStore
	publisher payroll.EventPublisher
	batchSize int
}

func NewOutboxRelay(tx payroll.Transactor, store payroll.OutboxStore, publisher payroll.EventPublisher) *OutboxRelay {
	return &OutboxRelay{
		tx:        tx,
		store:     store,
		publisher: publisher,
		batchSize: defaultRelayBatchSize,
	}
}

func (r *OutboxRelay) Run(ctx context.Context) error {
	return r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		pending, err := r.store.FetchPending(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}

		published := make([]string, 0, len(pending))
		for _, e := range pending {
			if err := r.publisher.Publish(ctx, e); err != nil {
				slog.Error("Outbox publish failed",
					"outbox_id", e.ID,
					"event", e.EventName(),
					"aggregate_id", e.AggregateID(),
					"attempts", e.Attempts+1,
					"error", err,
				)
				if err := r.store.MarkFailed(ctx, e.ID); err != nil {
					return err
				}
				continue
			}
			published = append(published, e.ID)
		}

		if len(published) == 0 {
			return nil
		}
		slog.Debug("Outbox events published", "count", len(published))
		return r.store.MarkPublished(ctx, published)
	})
}
