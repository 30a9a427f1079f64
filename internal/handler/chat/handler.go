package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/openorder-ai/erp-chatbot/internal/analysis/intent"
	"github.com/openorder-ai/erp-chatbot/internal/model/chat"
	chatservice "github.com/openorder-ai/erp-chatbot/internal/service/chat"
	"github.com/openorder-ai/erp-chatbot/internal/service/query"
	"github.com/openorder-ai/erp-chatbot/pkg/utils"
)

// Routing modes reported by /smart.
const (
	ModeStatic = "static"
	ModeSQL    = "sql"
	ModeChat   = "chat"
)

// Answerer runs the SQL pipeline for business questions.
type Answerer interface {
	Answer(ctx context.Context, question, sessionID string) (query.Result, error)
}

// Chatter answers small talk with session history in context.
type Chatter interface {
	Chat(ctx context.Context, message string, history []chat.Message) (string, error)
}

// Handler exposes the chatbot HTTP surface. Either collaborator may be nil
// when its backing service is not configured; affected routes answer 503.
type Handler struct {
	sessions *chatservice.Service
	answerer Answerer
	chatter  Chatter
}

// New creates the chat handler.
func New(sessions *chatservice.Service, answerer Answerer, chatter Chatter) *Handler {
	return &Handler{
		sessions: sessions,
		answerer: answerer,
		chatter:  chatter,
	}
}

// RegisterRoutes mounts the chatbot routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session/start", h.handleStartSession)
	r.Post("/ask", h.handleAsk)
	r.Post("/chat", h.handleChat)
	r.Post("/smart", h.handleSmart)
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.StartSession(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"session_id": session.ID})
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Question  string `json:"question"`
		SessionID string `json:"session_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Question) == "" {
		utils.RespondError(w, http.StatusBadRequest, "question is required")
		return
	}
	if payload.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if h.answerer == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "sql pipeline unavailable")
		return
	}

	session := h.sessions.Touch(r.Context(), payload.SessionID)

	result, err := h.answerer.Answer(r.Context(), payload.Question, session.ID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"summary":  result.Summary,
		"insights": result.Insights,
	})
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, status, err := h.runChat(r.Context(), payload.Message, payload.SessionID)
	if err != nil {
		utils.RespondError(w, status, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (h *Handler) handleSmart(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message := strings.TrimSpace(payload.Message)
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	// Greetings and goodbyes short-circuit before any session or model work.
	if static := intent.StaticReply(message); static != "" {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"reply": static, "mode": ModeStatic})
		return
	}

	session := h.sessions.Touch(r.Context(), payload.SessionID)

	if intent.IsBusinessQuery(message) {
		if h.answerer == nil {
			utils.RespondError(w, http.StatusServiceUnavailable, "sql pipeline unavailable")
			return
		}

		result, err := h.answerer.Answer(r.Context(), message, session.ID)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, err.Error())
			return
		}

		reply := result.Insights
		if reply == "" {
			reply = result.Summary
		}
		utils.RespondJSON(w, http.StatusOK, map[string]string{"reply": reply, "mode": ModeSQL})
		return
	}

	reply, status, err := h.runChat(r.Context(), message, session.ID)
	if err != nil {
		utils.RespondError(w, status, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"reply": reply, "mode": ModeChat})
}

// runChat answers a small-talk message with history and records both turns.
func (h *Handler) runChat(ctx context.Context, message, sessionID string) (string, int, error) {
	if h.chatter == nil {
		return "", http.StatusServiceUnavailable, errChatUnavailable
	}

	session := h.sessions.Touch(ctx, sessionID)

	history, err := h.sessions.LoadTranscript(ctx, session.ID)
	if err != nil {
		history = nil
	}

	reply, err := h.chatter.Chat(ctx, message, history)
	if err != nil {
		return "", http.StatusInternalServerError, err
	}

	_ = h.sessions.SaveMessage(ctx, chat.Message{SessionID: session.ID, Sender: chat.SenderUser, Content: message})
	_ = h.sessions.SaveMessage(ctx, chat.Message{SessionID: session.ID, Sender: chat.SenderAssistant, Content: reply})

	return reply, http.StatusOK, nil
}

var errChatUnavailable = errors.New("chat model unavailable")
