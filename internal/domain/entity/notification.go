package entity

import "time"

// Notification delivery statuses
const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
)

// Notification records one delivery attempt of a notice to one recipient
// over one channel
type Notification struct {
	ID           int64      `json:"id"`
	EventID      string     `json:"eventId"`
	RequestID    int64      `json:"requestId"`
	Channel      string     `json:"channel"`
	Recipient    string     `json:"recipient"`
	Subject      string     `json:"subject"`
	Body         string     `json:"-"`
	Status       string     `json:"status"`
	Attempts     int        `json:"attempts"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	SentAt       *time.Time `json:"sentAt,omitempty"`
}
