package model

import "time"

const (
	AuditActionAutoExpiry  = "AUTO_EXPIRY"
	AuditActionForceExpire = "FORCE_EXPIRE"
	AuditActionBulkReclaim = "BULK_RECLAIM"
)

// AuditEntry is append-only: rows are inserted in the same transaction as the
// state change they describe and never updated.
type AuditEntry struct {
	ID        int64          `json:"id"`
	ActorID   *string        `json:"actor_id"`
	TargetID  string         `json:"target_id"`
	Action    string         `json:"action"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type AuditQuery struct {
	Action   string
	ActorID  string
	TargetID string
	From     string
	To       string
	Page     int
	Limit    int
}

type AuditListData struct {
	Items []AuditEntry `json:"items"`
}
