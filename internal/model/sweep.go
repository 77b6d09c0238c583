package model

import "time"

// SweepResult summarizes one run of the ownership expiry engine. Acquired is
// false when another worker held the advisory lock and the run made no writes.
type SweepResult struct {
	Acquired  bool     `json:"-"`
	Expired   int      `json:"expired"`
	ExpertIDs []string `json:"expertIds"`
	DryRun    bool     `json:"dryRun"`
}

type SweepOptions struct {
	DryRun     bool
	BatchLimit int
}

// DecayData feeds the data-decay monitoring dashboard: how many private
// leases expire in each window, which experts expire soonest, and the most
// recent manual overrides.
type DecayData struct {
	Heatmap         DecayHeatmap   `json:"heatmap"`
	ExpiringExperts []ExpiringItem `json:"expiring_experts"`
	RecentForced    []AuditEntry   `json:"recent_forced"`
	LeaseDays       int            `json:"lease_days"`
}

type DecayHeatmap struct {
	Within24h int `json:"within_24h"`
	Within7d  int `json:"within_7d"`
	Within15d int `json:"within_15d"`
}

type ExpiringItem struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	OwnerID          *string    `json:"owner_id"`
	PrivateExpiresAt *time.Time `json:"private_expires_at"`
}
