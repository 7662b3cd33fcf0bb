package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/logger"
)

// AuditRecorder appends lifecycle events to the audit trail.
// ⭐ SSOT: 감사 이벤트 기록은 여기서만
type AuditRecorder struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewAuditRecorder creates an audit recorder
func NewAuditRecorder(pool *pgxpool.Pool, log *logger.Logger) *AuditRecorder {
	return &AuditRecorder{pool: pool, logger: log}
}

// Record appends an audit event. refID may be uuid.Nil when the event
// has no subject entity.
func (r *AuditRecorder) Record(ctx context.Context, eventType, actor, refType string, refID uuid.UUID, payload map[string]interface{}) (*contracts.AuditEvent, error) {
	event := &contracts.AuditEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Actor:     actor,
		RefType:   refType,
		RefID:     refID,
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	payloadJSON, err := json.Marshal(event.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO audit_events (id, event_type, actor, ref_type, ref_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var refIDArg interface{}
	if refID != uuid.Nil {
		refIDArg = refID
	}

	_, err = r.pool.Exec(ctx, query,
		event.ID, event.EventType, event.Actor, nullIfEmpty(event.RefType), refIDArg, payloadJSON, event.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert audit event: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"event_type": eventType,
		"actor":      actor,
		"ref_type":   refType,
		"ref_id":     refID,
	}).Info("Audit event recorded")

	return event, nil
}

// ListEvents returns recent audit events, newest first
func (r *AuditRecorder) ListEvents(ctx context.Context, limit int) ([]contracts.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, event_type, actor, COALESCE(ref_type, ''), COALESCE(ref_id, '00000000-0000-0000-0000-000000000000'), payload, created_at
		FROM audit_events
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	events := make([]contracts.AuditEvent, 0, limit)
	for rows.Next() {
		var event contracts.AuditEvent
		var payloadJSON []byte
		if err := rows.Scan(&event.ID, &event.EventType, &event.Actor, &event.RefType, &event.RefID, &payloadJSON, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if len(payloadJSON) > 0 {
			if err := json.Unmarshal(payloadJSON, &event.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit payload: %w", err)
			}
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
