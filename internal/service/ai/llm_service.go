package ai

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/openorder-ai/erp-chatbot/internal/config"
	"github.com/openorder-ai/erp-chatbot/internal/model/chat"
)

type runnable = compose.Runnable[map[string]any, *schema.Message]

// Service hosts the compiled LLM chains: SQL generation, insight
// summarization, question rewriting and the small-talk chat chain.
type Service struct {
	cfg          config.AIConfig
	historyLimit int

	sqlChain     runnable
	insightChain runnable
	rewriteChain runnable
	chatChain    runnable
}

// NewService compiles one chain per concern. SQL generation runs cold while
// insight and chat use the configured warmer temperatures.
func NewService(ctx context.Context, cfg config.AIConfig, historyLimit int) (*Service, error) {
	if historyLimit <= 0 {
		historyLimit = 10
	}

	sqlChain, err := newChain(ctx, cfg, cfg.SQLTemperature)
	if err != nil {
		return nil, fmt.Errorf("compile sql chain: %w", err)
	}

	insightChain, err := newChain(ctx, cfg, cfg.InsightTemperature)
	if err != nil {
		return nil, fmt.Errorf("compile insight chain: %w", err)
	}

	rewriteChain, err := newChain(ctx, cfg, cfg.InsightTemperature)
	if err != nil {
		return nil, fmt.Errorf("compile rewrite chain: %w", err)
	}

	chatChain, err := newChain(ctx, cfg, cfg.ChatTemperature)
	if err != nil {
		return nil, fmt.Errorf("compile chat chain: %w", err)
	}

	return &Service{
		cfg:          cfg,
		historyLimit: historyLimit,
		sqlChain:     sqlChain,
		insightChain: insightChain,
		rewriteChain: rewriteChain,
		chatChain:    chatChain,
	}, nil
}

// newChain builds the shared template-plus-model chain. The system text and
// user text are supplied as inputs so prompt content never fights the
// template formatter.
func newChain(ctx context.Context, cfg config.AIConfig, temperature float32) (runnable, error) {
	chatModel, err := cfg.NewChatModel(ctx, temperature)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	return chain.Compile(ctx)
}

// StreamingEnabled reports whether SSE streaming is configured on.
func (s *Service) StreamingEnabled() bool {
	return s.cfg.StreamResponse
}

// SQLRequest carries everything the SQL chain needs for one generation.
type SQLRequest struct {
	Question string
	Schema   string
	RowLimit int
	History  string
	LastItem string
}

// GenerateSQL asks the model for a single read-only statement.
func (s *Service) GenerateSQL(ctx context.Context, req SQLRequest) (string, error) {
	input := map[string]any{
		"system": sqlSystemPrompt,
		"query":  buildSQLUserPrompt(req.Question, req.Schema, req.History, req.LastItem, req.RowLimit),
	}

	response, err := s.sqlChain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run sql chain: %w", err)
	}

	return cleanSQLResponse(response.Content), nil
}

// Insight turns result rows into a user-facing answer. Failures degrade to a
// fixed notice instead of erroring the whole request.
func (s *Service) Insight(ctx context.Context, question, sql, rowsJSON string) string {
	input := map[string]any{
		"system": insightSystemPrompt,
		"query":  buildInsightUserPrompt(question, sql, rowsJSON),
	}

	response, err := s.insightChain.Invoke(ctx, input)
	if err != nil {
		log.Printf("[ai] insight chain failed: %v", err)
		return "No insights available."
	}
	return strings.TrimSpace(response.Content)
}

// Rewrite resolves vague references using conversation history. On failure
// the original question is used unchanged.
func (s *Service) Rewrite(ctx context.Context, question, history, lastItem string) string {
	input := map[string]any{
		"system": rewriteSystemPrompt,
		"query":  buildRewriteUserPrompt(question, history, lastItem),
	}

	response, err := s.rewriteChain.Invoke(ctx, input)
	if err != nil {
		log.Printf("[ai] rewrite chain failed: %v", err)
		return question
	}
	return strings.TrimSpace(response.Content)
}

// Chat answers a small-talk message with session history in context.
func (s *Service) Chat(ctx context.Context, message string, history []chat.Message) (string, error) {
	response, err := s.chatChain.Invoke(ctx, s.buildChatInput(message, history))
	if err != nil {
		return "", fmt.Errorf("failed to run chat chain: %w", err)
	}
	return strings.TrimSpace(response.Content), nil
}

// StreamChat streams the chat-chain reply chunk by chunk.
func (s *Service) StreamChat(ctx context.Context, message string, history []chat.Message) (*schema.StreamReader[*schema.Message], error) {
	if !s.StreamingEnabled() {
		return nil, fmt.Errorf("streaming disabled in configuration")
	}

	stream, err := s.chatChain.Stream(ctx, s.buildChatInput(message, history))
	if err != nil {
		return nil, fmt.Errorf("failed to stream chat chain output: %w", err)
	}
	return stream, nil
}

func (s *Service) buildChatInput(message string, history []chat.Message) map[string]any {
	return map[string]any{
		"system":  chatSystemPrompt,
		"history": s.buildHistoryMessages(history),
		"query":   message,
	}
}

func (s *Service) buildHistoryMessages(messages []chat.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > s.historyLimit {
		startIdx = len(messages) - s.historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Sender {
		case chat.SenderUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.SenderAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return history
}

// cleanSQLResponse strips markdown fences the model sometimes adds despite
// instructions.
func cleanSQLResponse(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.Trim(cleaned, "`")
	cleaned = strings.ReplaceAll(cleaned, "sql\n", "")
	return strings.TrimSpace(cleaned)
}
