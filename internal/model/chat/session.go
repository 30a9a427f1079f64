package chat

import "time"

// Session captures a transient anonymous conversation with the assistant.
type Session struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}
