// Package widget is the embeddable chat widget core: a pure state machine
// for the panel, a thin HTTP client for the chatbot backend, and a
// controller that ties the two together. Rendering is the host's job; the
// terminal front end in cmd/widget is one such host.
package widget

// Message senders.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// FallbackReply is shown as a bot message when a send fails.
const FallbackReply = "Sorry, something went wrong. Please try again."

// Message is one transcript entry.
type Message struct {
	Sender string
	Text   string
}

// State is the complete view state of one widget instance. The transcript is
// append-only; every mutation goes through Reduce.
type State struct {
	Open       bool
	Loading    bool
	Draft      string
	SessionID  string
	Transcript []Message
}

// Event is a state transition input.
type Event interface{ isEvent() }

// SessionStarted stores the backend-assigned session id, enabling sends.
type SessionStarted struct{ ID string }

// Toggled flips the open/closed visibility.
type Toggled struct{}

// DraftChanged replaces the pending input text.
type DraftChanged struct{ Text string }

// SendStarted performs the optimistic append: the user message enters the
// transcript, the draft clears and loading turns on.
type SendStarted struct{ Text string }

// ReplyReceived appends the bot reply and clears loading.
type ReplyReceived struct{ Text string }

// SendFailed appends the fallback notice and clears loading.
type SendFailed struct{}

func (SessionStarted) isEvent() {}
func (Toggled) isEvent()        {}
func (DraftChanged) isEvent()   {}
func (SendStarted) isEvent()    {}
func (ReplyReceived) isEvent()  {}
func (SendFailed) isEvent()     {}

// Reduce applies one event and returns the next state. The input state is
// never mutated; the transcript slice is copied before any append so earlier
// snapshots stay valid.
func Reduce(state State, event Event) State {
	switch e := event.(type) {
	case SessionStarted:
		state.SessionID = e.ID
	case Toggled:
		state.Open = !state.Open
	case DraftChanged:
		state.Draft = e.Text
	case SendStarted:
		state.Transcript = appendMessage(state.Transcript, Message{Sender: SenderUser, Text: e.Text})
		state.Draft = ""
		state.Loading = true
	case ReplyReceived:
		state.Transcript = appendMessage(state.Transcript, Message{Sender: SenderBot, Text: e.Text})
		state.Loading = false
	case SendFailed:
		state.Transcript = appendMessage(state.Transcript, Message{Sender: SenderBot, Text: FallbackReply})
		state.Loading = false
	}
	return state
}

func appendMessage(transcript []Message, msg Message) []Message {
	next := make([]Message, len(transcript), len(transcript)+1)
	copy(next, transcript)
	return append(next, msg)
}
