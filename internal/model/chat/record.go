package chat

import "time"

// Record is one durable chat_history row: the user question, the SQL the
// model produced for it, and the answer shown to the user.
type Record struct {
	SessionID    string
	UserMessage  string
	GeneratedSQL string
	AIMessage    string
	Timestamp    time.Time
}
