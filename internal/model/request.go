package model

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type CreateExpertRequest struct {
	Name string `json:"name"`
}

type AddContactRequest struct {
	Channel  string `json:"channel"`
	Value    string `json:"value"`
	Verified bool   `json:"verified"`
}

type ForceExpireRequest struct {
	OverrideExemption bool `json:"override_exemption"`
}

type BulkReclaimRequest struct {
	ExpertIDs  []string `json:"expert_ids"`
	NewOwnerID string   `json:"new_owner_id"`
}

type LeaseDaysRequest struct {
	LeaseDays int `json:"lease_days"`
}

type ContactVerifiedWebhook struct {
	RequestID string `json:"request_id"`
	ExpertID  string `json:"expert_id"`
	ContactID string `json:"contact_id"`
}
