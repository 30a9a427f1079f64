package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	modelchat "github.com/openorder-ai/erp-chatbot/internal/model/chat"
	chatservice "github.com/openorder-ai/erp-chatbot/internal/service/chat"
	"github.com/openorder-ai/erp-chatbot/internal/service/query"
)

type stubAnswerer struct {
	result    query.Result
	err       error
	question  string
	sessionID string
}

func (s *stubAnswerer) Answer(_ context.Context, question, sessionID string) (query.Result, error) {
	s.question = question
	s.sessionID = sessionID
	return s.result, s.err
}

type stubChatter struct {
	reply string
	err   error
}

func (s *stubChatter) Chat(_ context.Context, _ string, _ []modelchat.Message) (string, error) {
	return s.reply, s.err
}

func setupRouter(answerer Answerer, chatter Chatter) (*chi.Mux, *chatservice.Service) {
	sessions := chatservice.NewService()
	handler := New(sessions, answerer, chatter)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, sessions
}

func postJSON(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	out := map[string]string{}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func TestStartSession(t *testing.T) {
	r, sessions := setupRouter(nil, nil)

	resp := postJSON(t, r, "/session/start", map[string]string{})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	body := decodeBody(t, resp)
	if body["session_id"] == "" {
		t.Fatal("expected a session_id")
	}
	if _, err := sessions.GetSession(context.Background(), body["session_id"]); err != nil {
		t.Fatalf("session should exist: %v", err)
	}
}

func TestAskRequiresSessionID(t *testing.T) {
	r, _ := setupRouter(&stubAnswerer{}, nil)

	resp := postJSON(t, r, "/ask", map[string]string{"question": "open orders"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestAskHappyPath(t *testing.T) {
	answerer := &stubAnswerer{result: query.Result{Summary: "Here are the results.", Insights: "- SO-1"}}
	r, _ := setupRouter(answerer, nil)

	resp := postJSON(t, r, "/ask", map[string]string{"question": "open orders", "session_id": "abc"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	body := decodeBody(t, resp)
	if body["summary"] != "Here are the results." || body["insights"] != "- SO-1" {
		t.Fatalf("unexpected body: %v", body)
	}
	if answerer.sessionID != "abc" {
		t.Fatalf("expected session to pass through, got %q", answerer.sessionID)
	}
}

func TestAskPipelineFailure(t *testing.T) {
	answerer := &stubAnswerer{err: errors.New("Query failed: boom")}
	r, _ := setupRouter(answerer, nil)

	resp := postJSON(t, r, "/ask", map[string]string{"question": "open orders", "session_id": "abc"})
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}

func TestSmartStaticReply(t *testing.T) {
	r, _ := setupRouter(&stubAnswerer{}, &stubChatter{})

	resp := postJSON(t, r, "/smart", map[string]string{"message": "hello"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	body := decodeBody(t, resp)
	if body["mode"] != ModeStatic {
		t.Fatalf("expected static mode, got %q", body["mode"])
	}
}

func TestSmartRoutesBusinessToSQL(t *testing.T) {
	answerer := &stubAnswerer{result: query.Result{Summary: "Here are the results.", Insights: "- SO-1"}}
	r, _ := setupRouter(answerer, &stubChatter{reply: "nope"})

	resp := postJSON(t, r, "/smart", map[string]string{"message": "show pending orders for Pune"})
	body := decodeBody(t, resp)
	if body["mode"] != ModeSQL {
		t.Fatalf("expected sql mode, got %q", body["mode"])
	}
	if body["reply"] != "- SO-1" {
		t.Fatalf("expected insights as reply, got %q", body["reply"])
	}
}

func TestSmartMintsSessionWhenAbsent(t *testing.T) {
	answerer := &stubAnswerer{result: query.Result{Summary: "No matching records found."}}
	r, _ := setupRouter(answerer, nil)

	resp := postJSON(t, r, "/smart", map[string]string{"message": "show pending orders"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if answerer.sessionID == "" {
		t.Fatal("expected a minted session id")
	}
}

func TestSmartRoutesSmallTalkToChat(t *testing.T) {
	r, _ := setupRouter(&stubAnswerer{}, &stubChatter{reply: "sure, ask away"})

	resp := postJSON(t, r, "/smart", map[string]string{"message": "help"})
	body := decodeBody(t, resp)
	if body["mode"] != ModeChat {
		t.Fatalf("expected chat mode, got %q", body["mode"])
	}
	if body["reply"] != "sure, ask away" {
		t.Fatalf("unexpected reply: %q", body["reply"])
	}
}

func TestChatRecordsBothTurns(t *testing.T) {
	r, sessions := setupRouter(nil, &stubChatter{reply: "hi there"})

	resp := postJSON(t, r, "/chat", map[string]string{"message": "tell me something", "session_id": "sess-1"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	transcript, err := sessions.LoadTranscript(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("LoadTranscript err: %v", err)
	}
	if len(transcript) != 2 || transcript[1].Content != "hi there" {
		t.Fatalf("unexpected transcript: %+v", transcript)
	}
}

func TestChatUnavailableWithoutModel(t *testing.T) {
	r, _ := setupRouter(nil, nil)

	resp := postJSON(t, r, "/chat", map[string]string{"message": "hi there friend"})
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}
