package repository

import (
	"context"
	"time"

	"event-ticketing/internal/infra/db"
)

type WebhookEventRepository struct {
	db db.DBTX
}

func NewWebhookEventRepository(dbtx db.DBTX) *WebhookEventRepository {
	return &WebhookEventRepository{db: dbtx}
}

// Claim records the gateway event id before any processing. ON CONFLICT DO
// NOTHING makes the claim race-free: exactly one of any set of concurrent
// duplicate deliveries observes an affected row.
func (r *WebhookEventRepository) Claim(ctx context.Context, eventID, eventType string, payload []byte, receivedAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO webhook_events (id, event_type, payload, received_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, eventID, eventType, payload, receivedAt)
	if err != nil {
		return false, wrapPgErr("failed to claim webhook event", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *WebhookEventRepository) Release(ctx context.Context, eventID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM webhook_events WHERE id = $1`, eventID)
	if err != nil {
		return wrapPgErr("failed to release webhook event claim", err)
	}
	return nil
}

func (r *WebhookEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM webhook_events WHERE received_at < $1`, cutoff)
	if err != nil {
		return 0, wrapPgErr("failed to purge webhook events", err)
	}
	return tag.RowsAffected(), nil
}
