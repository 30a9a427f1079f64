package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/openorder-ai/erp-chatbot/internal/config"
	"github.com/openorder-ai/erp-chatbot/internal/handler"
	chathandler "github.com/openorder-ai/erp-chatbot/internal/handler/chat"
	"github.com/openorder-ai/erp-chatbot/internal/handler/stream"
	"github.com/openorder-ai/erp-chatbot/internal/repository"
	"github.com/openorder-ai/erp-chatbot/internal/service/ai"
	"github.com/openorder-ai/erp-chatbot/internal/service/chat"
	"github.com/openorder-ai/erp-chatbot/internal/service/query"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	sessions := chat.NewService()
	go sessions.RunCleanup(ctx, cfg.Chatbot.CleanupInterval, cfg.Chatbot.SessionTimeout)

	var aiService *ai.Service
	if cfg.AI.Enabled() {
		aiService, err = ai.NewService(ctx, cfg.AI, cfg.Chatbot.HistoryLimit)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without AI functionality - check the ARK_* environment variables")
		} else {
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("Ark credentials not configured, skipping AI initialization")
	}

	var store *repository.Store
	if cfg.Database.Enabled() {
		store, err = repository.New(ctx, cfg.Database, cfg.Chatbot.SchemaCacheTTL)
		if err != nil {
			log.Printf("warning: failed to connect to database: %v", err)
			log.Println("continuing without the SQL pipeline - check DATABASE_URL")
			store = nil
		} else {
			defer store.Close()
			if err := store.EnsureSchema(ctx); err != nil {
				log.Printf("warning: failed to ensure chat_history table: %v", err)
			}
			log.Println("database connection established")
		}
	} else {
		log.Println("DATABASE_URL not configured, skipping SQL pipeline initialization")
	}

	// The SQL pipeline needs both the database and the model; the chat and
	// streaming surfaces need only the model. Routes degrade to 503 when
	// their collaborator is absent.
	var answerer chathandler.Answerer
	if store != nil && aiService != nil {
		answerer = query.NewService(sessions, store, aiService, cfg.Chatbot.RowLimit)
	}

	var chatter chathandler.Chatter
	var streamer stream.Streamer
	if aiService != nil {
		chatter = aiService
		streamer = aiService
	}

	router := handler.NewRouter(sessions, answerer, chatter, streamer)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("ERP chatbot backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
