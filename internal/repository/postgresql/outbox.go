package postgresql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type outboxStore struct {
	db *database.DB
}

func NewOutboxStore(db *database.DB) payroll.OutboxStore {
	return &outboxStore{db: db}
}

func (s *outboxStore) Append(ctx context.Context, events []payroll.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	q := GetQuerier(ctx, s.db)

	query := `
		INSERT INTO payroll_outbox (id, aggregate_id, event_name, payload, occurred_at)
		VALUES ($1, $2, $3, $4::jsonb, $5)
	`
	batch := &pgx.Batch{}
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", e.EventName(), err)
		}
		batch.Queue(query, uuid.Must(uuid.NewV7()).String(), e.AggregateID(), e.EventName(), string(payload), e.OccurredAt())
	}

	br := q.SendBatch(ctx, batch)
	defer br.Close()
	for range events {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to append outbox event: %w", err)
		}
	}
	return nil
}

// FetchPending locks the returned rows until the surrounding transaction ends,
// so concurrent relays never publish the same row at once.
func (s *outboxStore) FetchPending(ctx context.Context, limit int) ([]payroll.StoredEvent, error) {
	q := GetQuerier(ctx, s.db)

	query := `
		SELECT id, aggregate_id, event_name, payload, occurred_at, attempts
		FROM payroll_outbox
		WHERE published_at IS NULL
		ORDER BY occurred_at, id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outbox events: %w", err)
	}
	defer rows.Close()

	var out []payroll.StoredEvent
	for rows.Next() {
		var e payroll.StoredEvent
		if err := rows.Scan(&e.ID, &e.Aggregate, &e.Name, &e.Payload, &e.At, &e.Attempts); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to fetch outbox events: %w", err)
	}
	return out, nil
}

func (s *outboxStore) MarkPublished(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	q := GetQuerier(ctx, s.db)

	query := `UPDATE payroll_outbox SET published_at = NOW(), attempts = attempts + 1 WHERE id = ANY($1)`
	if _, err := q.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("failed to mark outbox events published: %w", err)
	}
	return nil
}

func (s *outboxStore) MarkFailed(ctx context.Context, id string) error {
	q := GetQuerier(ctx, s.db)

	if _, err := q.Exec(ctx, `UPDATE payroll_outbox SET attempts = attempts + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to mark outbox event failed: %w", err)
	}
	return nil
}
