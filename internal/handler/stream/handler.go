package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/openorder-ai/erp-chatbot/internal/model/chat"
	chatservice "github.com/openorder-ai/erp-chatbot/internal/service/chat"
	"github.com/openorder-ai/erp-chatbot/pkg/utils"
)

// Streamer is the chat-chain streaming surface.
type Streamer interface {
	StreamChat(ctx context.Context, message string, history []chat.Message) (*schema.StreamReader[*schema.Message], error)
	StreamingEnabled() bool
}

// Handler streams small-talk replies over Server-Sent Events.
type Handler struct {
	ai       Streamer
	sessions *chatservice.Service
}

// New creates the stream handler.
func New(ai Streamer, sessions *chatservice.Service) *Handler {
	return &Handler{ai: ai, sessions: sessions}
}

// Response is one streamed SSE frame.
type Response struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleStreamRequest streams the reply to userMessage for the session.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	session := h.sessions.Touch(ctx, sessionID)

	history, err := h.sessions.LoadTranscript(ctx, session.ID)
	if err != nil {
		history = nil
	}

	if err := h.sessions.SaveMessage(ctx, chat.Message{
		SessionID: session.ID,
		Sender:    chat.SenderUser,
		Content:   userMessage,
	}); err != nil {
		log.Printf("[stream] failed to save user message: %v", err)
	}

	utils.SendSSEChunk(w, flusher, Response{Event: "start", SessionID: session.ID})

	reader, err := h.ai.StreamChat(ctx, userMessage, history)
	if err != nil {
		utils.SendSSEChunk(w, flusher, Response{Event: "error", Error: err.Error()})
		return err
	}
	defer reader.Close()

	var full strings.Builder
	for {
		chunk, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			utils.SendSSEChunk(w, flusher, Response{Event: "error", Error: err.Error()})
			return fmt.Errorf("failed to read stream chunk: %w", err)
		}

		if chunk.Content == "" {
			continue
		}
		full.WriteString(chunk.Content)
		utils.SendSSEChunk(w, flusher, Response{Event: "chunk", Content: chunk.Content})
	}

	reply := strings.TrimSpace(full.String())
	if err := h.sessions.SaveMessage(ctx, chat.Message{
		SessionID: session.ID,
		Sender:    chat.SenderAssistant,
		Content:   reply,
	}); err != nil {
		log.Printf("[stream] failed to save assistant message: %v", err)
	}

	utils.SendSSEChunk(w, flusher, Response{Event: "complete", SessionID: session.ID, Finished: true})
	return nil
}
