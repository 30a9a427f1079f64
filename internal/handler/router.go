package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chathandler "github.com/openorder-ai/erp-chatbot/internal/handler/chat"
	"github.com/openorder-ai/erp-chatbot/internal/handler/stream"
	middlewarePkg "github.com/openorder-ai/erp-chatbot/internal/middleware"
	chatservice "github.com/openorder-ai/erp-chatbot/internal/service/chat"
	"github.com/openorder-ai/erp-chatbot/pkg/utils"
)

// NewRouter wires HTTP routes to core services. answerer and chatter may be
// nil when the database or the model is not configured.
func NewRouter(sessions *chatservice.Service, answerer chathandler.Answerer, chatter chathandler.Chatter, streamer stream.Streamer) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatHandler := chathandler.New(sessions, answerer, chatter)
	chatHandler.RegisterRoutes(r)

	var streamHandler *stream.Handler
	if streamer != nil && streamer.StreamingEnabled() {
		streamHandler = stream.New(streamer, sessions)
	}

	r.Get("/chat/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		userMessage := r.URL.Query().Get("message")

		if streamHandler == nil {
			utils.RespondError(w, http.StatusServiceUnavailable, "streaming unavailable")
			return
		}
		if userMessage == "" {
			utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
			return
		}

		if err := streamHandler.HandleStreamRequest(r.Context(), w, sessionID, userMessage); err != nil {
			log.Printf("[stream] error handling request: %v", err)
		}
	})

	return r
}
