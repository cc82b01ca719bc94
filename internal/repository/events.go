package repository

import (
	"context"

	"fixflow.io/fixflow/internal/domain"
)

// EventRepo persists the append-only domain event log.
type EventRepo struct {
	db DB
}

// NewEventRepo creates an event repository on the given executor.
func NewEventRepo(db DB) *EventRepo {
	return &EventRepo{db: db}
}

// WithTx returns a copy bound to the transaction.
func (r *EventRepo) WithTx(tx DB) *EventRepo {
	return &EventRepo{db: tx}
}

// Insert appends one domain event.
func (r *EventRepo) Insert(ctx context.Context, e *domain.Event) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO domain_events (
			id, event_type, aggregate_type, aggregate_id, payload, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.EventID, e.EventType, e.AggregateType, e.AggregateID,
		e.Payload, e.CreatedBy, e.CreatedAt,
	)
	return err
}

// ListByAggregate returns the events for one aggregate, oldest first.
func (r *EventRepo) ListByAggregate(ctx context.Context, aggregateType, aggregateID string) ([]*domain.Event, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, event_type, aggregate_type, aggregate_id, payload, created_by, created_at
		FROM domain_events
		WHERE aggregate_type = $1 AND aggregate_id = $2
		ORDER BY created_at, id`, aggregateType, aggregateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.EventID, &e.EventType, &e.AggregateType, &e.AggregateID,
			&e.Payload, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
