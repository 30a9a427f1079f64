package widget

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func newBackendServer(t *testing.T, reply string, sendStatus int, sends *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/session/start", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"session_id": "abc"})
	})
	mux.HandleFunc("/smart", func(w http.ResponseWriter, r *http.Request) {
		if sends != nil {
			sends.Add(1)
		}
		if sendStatus != http.StatusOK {
			w.WriteHeader(sendStatus)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"reply": reply, "mode": "chat"})
	})
	return httptest.NewServer(mux)
}

func TestStartSessionEnablesSending(t *testing.T) {
	srv := newBackendServer(t, "hi", http.StatusOK, nil)
	defer srv.Close()

	w := New(NewClient(srv.URL))
	require.NoError(t, w.StartSession(context.Background()))
	require.Equal(t, "abc", w.State().SessionID)
}

func TestStartSessionFailureLeavesSendingDisabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := New(NewClient(srv.URL))
	require.Error(t, w.StartSession(context.Background()))
	require.Empty(t, w.State().SessionID)

	// Without a session every send is a silent no-op.
	w.SendMessage(context.Background(), "hello")
	require.Empty(t, w.State().Transcript)
	require.False(t, w.State().Loading)
}

func TestSendMessageHappyPath(t *testing.T) {
	srv := newBackendServer(t, "hi", http.StatusOK, nil)
	defer srv.Close()

	w := New(NewClient(srv.URL))
	require.NoError(t, w.StartSession(context.Background()))

	w.SendMessage(context.Background(), "hello")

	state := w.State()
	require.False(t, state.Loading)
	require.Equal(t, []Message{
		{Sender: SenderUser, Text: "hello"},
		{Sender: SenderBot, Text: "hi"},
	}, state.Transcript)
}

func TestSendMessageFailureAppendsFallback(t *testing.T) {
	srv := newBackendServer(t, "", http.StatusBadGateway, nil)
	defer srv.Close()

	w := New(NewClient(srv.URL))
	require.NoError(t, w.StartSession(context.Background()))

	w.SendMessage(context.Background(), "hello")

	state := w.State()
	require.False(t, state.Loading)
	require.Len(t, state.Transcript, 2)
	require.Equal(t, Message{Sender: SenderBot, Text: FallbackReply}, state.Transcript[1])
}

func TestSendMessageWhitespaceIsNoOp(t *testing.T) {
	var sends atomic.Int32
	srv := newBackendServer(t, "hi", http.StatusOK, &sends)
	defer srv.Close()

	w := New(NewClient(srv.URL))
	require.NoError(t, w.StartSession(context.Background()))

	for _, draft := range []string{"", "   ", "\n\t "} {
		w.SendMessage(context.Background(), draft)
	}

	require.Empty(t, w.State().Transcript)
	require.Zero(t, sends.Load())
}

type blockingBackend struct {
	release chan struct{}
	sends   atomic.Int32
}

func (b *blockingBackend) StartSession(context.Context) (string, error) {
	return "abc", nil
}

func (b *blockingBackend) Send(context.Context, string, string) (string, error) {
	b.sends.Add(1)
	<-b.release
	return "late reply", nil
}

func TestSendMessageWhileLoadingIsNoOp(t *testing.T) {
	backend := &blockingBackend{release: make(chan struct{})}
	w := New(backend)
	require.NoError(t, w.StartSession(context.Background()))

	done := make(chan struct{})
	go func() {
		w.SendMessage(context.Background(), "first")
		close(done)
	}()

	// Wait until the first exchange is in flight.
	require.Eventually(t, func() bool {
		return w.State().Loading
	}, 1e9, 1e6)

	w.SendMessage(context.Background(), "second")
	require.Equal(t, int32(1), backend.sends.Load())

	close(backend.release)
	<-done

	state := w.State()
	require.False(t, state.Loading)
	require.Equal(t, []Message{
		{Sender: SenderUser, Text: "first"},
		{Sender: SenderBot, Text: "late reply"},
	}, state.Transcript)
}

func TestToggleDoesNotTouchTranscript(t *testing.T) {
	srv := newBackendServer(t, "hi", http.StatusOK, nil)
	defer srv.Close()

	w := New(NewClient(srv.URL))
	require.NoError(t, w.StartSession(context.Background()))
	w.SendMessage(context.Background(), "hello")

	before := w.State()
	w.Toggle()
	require.True(t, w.State().Open)
	w.Toggle()

	after := w.State()
	require.Equal(t, before.Open, after.Open)
	require.Equal(t, before.Transcript, after.Transcript)
}
