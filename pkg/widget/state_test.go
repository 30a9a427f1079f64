package widget

import "testing"

func TestReduceSendStartedOptimisticAppend(t *testing.T) {
	state := State{SessionID: "abc", Draft: "hello"}

	next := Reduce(state, SendStarted{Text: "hello"})

	if !next.Loading {
		t.Fatal("loading should be set")
	}
	if next.Draft != "" {
		t.Fatalf("draft should clear, got %q", next.Draft)
	}
	if len(next.Transcript) != 1 || next.Transcript[0] != (Message{Sender: SenderUser, Text: "hello"}) {
		t.Fatalf("unexpected transcript: %+v", next.Transcript)
	}
}

func TestReduceReplyClearsLoading(t *testing.T) {
	state := Reduce(State{SessionID: "abc"}, SendStarted{Text: "hello"})
	next := Reduce(state, ReplyReceived{Text: "hi"})

	if next.Loading {
		t.Fatal("loading should clear")
	}
	last := next.Transcript[len(next.Transcript)-1]
	if last != (Message{Sender: SenderBot, Text: "hi"}) {
		t.Fatalf("unexpected last message: %+v", last)
	}
}

func TestReduceSendFailedAppendsFallback(t *testing.T) {
	state := Reduce(State{SessionID: "abc"}, SendStarted{Text: "hello"})
	next := Reduce(state, SendFailed{})

	if next.Loading {
		t.Fatal("loading should clear")
	}
	last := next.Transcript[len(next.Transcript)-1]
	if last != (Message{Sender: SenderBot, Text: FallbackReply}) {
		t.Fatalf("unexpected last message: %+v", last)
	}
}

func TestReduceToggleTwiceRestoresVisibility(t *testing.T) {
	state := State{Transcript: []Message{{Sender: SenderUser, Text: "hello"}}}

	once := Reduce(state, Toggled{})
	twice := Reduce(once, Toggled{})

	if once.Open == state.Open || twice.Open != state.Open {
		t.Fatalf("toggle sequence wrong: %v -> %v -> %v", state.Open, once.Open, twice.Open)
	}
	if len(twice.Transcript) != 1 {
		t.Fatalf("transcript must be untouched, got %+v", twice.Transcript)
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	state := State{SessionID: "abc", Transcript: []Message{{Sender: SenderUser, Text: "one"}}}
	snapshot := state.Transcript

	_ = Reduce(state, SendStarted{Text: "two"})
	_ = Reduce(state, ReplyReceived{Text: "three"})

	if len(snapshot) != 1 || snapshot[0].Text != "one" {
		t.Fatalf("input transcript mutated: %+v", snapshot)
	}
	if len(state.Transcript) != 1 {
		t.Fatalf("input state mutated: %+v", state.Transcript)
	}
}
