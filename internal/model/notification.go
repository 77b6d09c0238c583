package model

import "time"

const (
	NotificationExpertExpired        = "EXPERT_EXPIRED"
	NotificationGlobalPoolTransition = "GLOBAL_POOL_TRANSITION"
	NotificationExpertReassigned     = "EXPERT_REASSIGNED"
)

type Notification struct {
	ID        int64      `json:"id"`
	UserID    string     `json:"user_id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

type NotificationListData struct {
	Items []Notification `json:"items"`
}
