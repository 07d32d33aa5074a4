package notify

import (
	"time"
	"unicode/utf8"
)

// MessageType tags push notifications on the queue.
const MessageType = "push"

// Notification is one push message addressed to every registered device.
type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Result counts per-token outcomes of a fan-out.
type Result struct {
	SuccessCount int `json:"success_count"`
	FailureCount int `json:"failure_count"`
}

// DeviceToken is a push destination owned by an account.
type DeviceToken struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"user"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Excerpt returns the first n characters of s followed by "...".
func Excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) > n {
		s = string([]rune(s)[:n])
	}
	return s + "..."
}
