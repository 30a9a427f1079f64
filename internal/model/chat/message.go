package chat

import "time"

// Sender values stored on Message.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Message persists individual turns for context resolution and audit.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
