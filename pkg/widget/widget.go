package widget

import (
	"context"
	"log"
	"strings"
	"sync"
)

// Backend is the network surface the widget depends on. *Client implements
// it; tests substitute stubs.
type Backend interface {
	StartSession(ctx context.Context) (string, error)
	Send(ctx context.Context, sessionID, message string) (string, error)
}

// Widget owns one instance of the chat widget state and enforces the send
// preconditions. All methods are safe for concurrent use, though the loading
// flag already guarantees at most one exchange is in flight.
type Widget struct {
	mu      sync.Mutex
	state   State
	backend Backend
}

// New creates a widget bound to the backend.
func New(backend Backend) *Widget {
	return &Widget{backend: backend}
}

// State returns a snapshot of the current state. The transcript slice is
// copy-on-append, so the snapshot stays valid after later transitions.
func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// StartSession asks the backend for a session id. On failure the widget
// stays without a session and sending remains disabled; the error is logged
// and returned but never retried here.
func (w *Widget) StartSession(ctx context.Context) error {
	id, err := w.backend.StartSession(ctx)
	if err != nil {
		log.Printf("[widget] session start failed: %v", err)
		return err
	}

	w.apply(SessionStarted{ID: id})
	return nil
}

// Toggle flips the open/closed visibility. Always permitted, no side
// effects beyond the flag.
func (w *Widget) Toggle() {
	w.apply(Toggled{})
}

// SetDraft stores the pending input text.
func (w *Widget) SetDraft(text string) {
	w.apply(DraftChanged{Text: text})
}

// SendMessage runs one exchange. A blank draft, a missing session or an
// in-flight exchange makes it a silent no-op with no network call. The user
// message is appended optimistically; a failed exchange appends the fallback
// notice instead of the reply. Loading is cleared on every outcome.
func (w *Widget) SendMessage(ctx context.Context, draft string) {
	text := strings.TrimSpace(draft)

	w.mu.Lock()
	if text == "" || w.state.Loading || w.state.SessionID == "" {
		w.mu.Unlock()
		return
	}
	w.state = Reduce(w.state, SendStarted{Text: text})
	sessionID := w.state.SessionID
	w.mu.Unlock()

	reply, err := w.backend.Send(ctx, sessionID, text)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		log.Printf("[widget] send failed: %v", err)
		w.state = Reduce(w.state, SendFailed{})
		return
	}
	w.state = Reduce(w.state, ReplyReceived{Text: reply})
}

func (w *Widget) apply(event Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = Reduce(w.state, event)
}
