package contracts

import (
	"time"

	"github.com/google/uuid"
)

// AuditEvent is an append-only record of a lifecycle transition
type AuditEvent struct {
	ID        uuid.UUID              `json:"id"`
	EventType string                 `json:"event_type"`
	Actor     string                 `json:"actor"`
	RefType   string                 `json:"ref_type,omitempty"`
	RefID     uuid.UUID              `json:"ref_id,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// Alert records a notification that was actually delivered
type Alert struct {
	ID      uuid.UUID              `json:"id"`
	Level   AlertLevel             `json:"level"`
	Channel string                 `json:"channel"`
	Title   string                 `json:"title"`
	Body    map[string]interface{} `json:"body"`
	SentAt  time.Time              `json:"sent_at"`
}

// Control is the single-row global kill switch.
// 운영자가 수동으로 토글, 모든 plan/execution 경로가 확인함.
type Control struct {
	KillSwitch bool      `json:"kill_switch"`
	Reason     string    `json:"reason,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}
