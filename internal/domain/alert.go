package domain

import "time"

// Alert delivery states. The dispatcher is the only writer of the SENT
// transition.
const (
	AlertStatusPending = "PENDING"
	AlertStatusSent    = "SENT"
)

// Alert is a notification queued for delivery to a user over the messaging
// channel. UserID is kept as a string because the issuing side submits it as
// free-form text; the dispatcher parses and validates it at delivery time.
type Alert struct {
	ID            int64     `json:"id"`
	Message       string    `json:"message"`
	TaskID        int64     `json:"task_id,omitempty"`
	Task          string    `json:"task"`
	ProjectID     int64     `json:"project_id,omitempty"`
	UserID        string    `json:"user_id"`
	Priority      string    `json:"priority"`
	ScheduledTime time.Time `json:"scheduled_time"`
	Status        string    `json:"status"`
}

// IsPending reports whether the alert is still awaiting delivery.
func (a *Alert) IsPending() bool {
	return a.Status == AlertStatusPending
}
