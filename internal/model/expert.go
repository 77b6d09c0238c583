package model

import "time"

const (
	VisibilityPrivate    = "PRIVATE"
	VisibilityGlobalPool = "GLOBAL_POOL"
)

type Expert struct {
	ID                    string     `json:"id"`
	Name                  string     `json:"name"`
	OwnerID               *string    `json:"owner_id"`
	VisibilityStatus      string     `json:"visibility_status"`
	PrivateExpiresAt      *time.Time `json:"private_expires_at"`
	ReacquisitionPriority bool       `json:"reacquisition_priority"`
	LastContactUpdate     *time.Time `json:"last_contact_update"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
	HasVerifiedContact    bool       `json:"has_verified_contact"`
}

type ExpertContact struct {
	ID         string    `json:"id"`
	ExpertID   string    `json:"expert_id"`
	Channel    string    `json:"channel"`
	Value      string    `json:"value"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// Candidate is one row claimed by the expiry selector. The three fields are
// exactly what the transition, audit, and notification writes need.
type Candidate struct {
	ID      string
	Name    string
	OwnerID *string
}

type ExpertQuery struct {
	Visibility string
	OwnerID    string
	Page       int
	Limit      int
}
