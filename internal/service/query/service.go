// Package query runs the SQL answer pipeline: resolve conversation context,
// generate a statement, repair and vet it, execute it against the open-order
// view and summarize the rows for the user.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/openorder-ai/erp-chatbot/internal/analysis/intent"
	"github.com/openorder-ai/erp-chatbot/internal/analysis/sqlguard"
	"github.com/openorder-ai/erp-chatbot/internal/model/chat"
	"github.com/openorder-ai/erp-chatbot/internal/repository"
	"github.com/openorder-ai/erp-chatbot/internal/service/ai"
	chatservice "github.com/openorder-ai/erp-chatbot/internal/service/chat"
)

const noRecordsInsight = "I couldn't find any records matching your request."

// Database is the storage surface the pipeline needs.
type Database interface {
	SchemaSnapshot(ctx context.Context) (string, error)
	RunQuery(ctx context.Context, sql string) ([]repository.Row, error)
	SaveChatRecord(ctx context.Context, record chat.Record) error
}

// Generator is the LLM surface the pipeline needs.
type Generator interface {
	GenerateSQL(ctx context.Context, req ai.SQLRequest) (string, error)
	Insight(ctx context.Context, question, sql, rowsJSON string) string
	Rewrite(ctx context.Context, question, history, lastItem string) string
}

// Result is the /ask response payload.
type Result struct {
	Summary  string
	Insights string
}

// Service orchestrates one question through the pipeline.
type Service struct {
	sessions *chatservice.Service
	db       Database
	llm      Generator
	rowLimit int
}

// NewService wires the pipeline collaborators.
func NewService(sessions *chatservice.Service, db Database, llm Generator, rowLimit int) *Service {
	if rowLimit <= 0 {
		rowLimit = 100
	}
	return &Service{sessions: sessions, db: db, llm: llm, rowLimit: rowLimit}
}

// Answer resolves one business question for the session. A guardrail
// rejection comes back as a normal Result; only infrastructure failures
// (schema read, generation, execution) surface as errors.
func (s *Service) Answer(ctx context.Context, question, sessionID string) (Result, error) {
	question = strings.TrimSpace(question)

	// Record the user turn first so context resolution sees it, same as the
	// transcript a reader would audit later.
	if err := s.sessions.SaveMessage(ctx, chat.Message{
		SessionID: sessionID,
		Sender:    chat.SenderUser,
		Content:   question,
	}); err != nil {
		return Result{}, fmt.Errorf("failed to record user turn: %w", err)
	}

	transcript, err := s.sessions.LoadTranscript(ctx, sessionID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load transcript: %w", err)
	}
	historyText := joinTranscript(transcript)

	lastItem := s.sessions.LastItem(ctx, sessionID)
	if userItem := intent.ExtractItemNo(question); userItem != "" {
		s.sessions.SetLastItem(ctx, sessionID, userItem)
		lastItem = userItem
	}

	if static := intent.StaticReply(question); static != "" {
		s.recordAssistantTurn(ctx, sessionID, static)
		return Result{Summary: static}, nil
	}

	// Only referential questions carry history and item context into
	// generation; fresh questions must not inherit filters from prior turns.
	finalQuestion := question
	historyToUse := ""
	itemToUse := ""
	if intent.NeedsContext(question) {
		log.Printf("[query] context trigger detected in %q, keeping history", question)
		historyToUse = historyText
		itemToUse = lastItem
		finalQuestion = s.llm.Rewrite(ctx, question, historyText, lastItem)
	} else {
		log.Printf("[query] no context trigger for %q, fresh start", question)
	}

	schemaText, err := s.db.SchemaSnapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load schema snapshot: %w", err)
	}

	sql, err := s.llm.GenerateSQL(ctx, ai.SQLRequest{
		Question: finalQuestion,
		Schema:   schemaText,
		RowLimit: s.rowLimit,
		History:  historyToUse,
		LastItem: itemToUse,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to generate sql: %w", err)
	}

	if sqlItem := intent.ExtractItemFromSQL(sql); sqlItem != "" {
		s.sessions.SetLastItem(ctx, sessionID, sqlItem)
		itemToUse = sqlItem
	}

	var allowedItems []string
	if itemToUse != "" {
		allowedItems = []string{itemToUse}
	}
	sql = sqlguard.StripForeignItemFilters(sql, allowedItems)

	if sqlguard.ImpliesPending(question) && !sqlguard.HasBalanceFilter(sql) {
		sql = sqlguard.AddPendingFilter(sql)
	}

	sql = sqlguard.StripBindParams(sql)

	cleaned, err := sqlguard.Sanitize(sql)
	if err != nil {
		failMsg := fmt.Sprintf("Rejected SQL: %v", err)
		s.recordAssistantTurn(ctx, sessionID, failMsg)
		return Result{Summary: failMsg}, nil
	}

	cleaned = sqlguard.EnsureLimit(cleaned, s.rowLimit)

	rows, err := s.db.RunQuery(ctx, cleaned)
	if err != nil {
		errMsg := fmt.Sprintf("Query failed: %v", err)
		s.recordAssistantTurn(ctx, sessionID, errMsg)
		return Result{}, fmt.Errorf("%s", errMsg)
	}

	insights := noRecordsInsight
	if len(rows) > 0 {
		insights = s.llm.Insight(ctx, question, cleaned, rowsToJSON(rows))
	}

	if err := s.db.SaveChatRecord(ctx, chat.Record{
		SessionID:    sessionID,
		UserMessage:  question,
		GeneratedSQL: cleaned,
		AIMessage:    insights,
	}); err != nil {
		log.Printf("[query] failed to save chat record: %v", err)
	}
	s.recordAssistantTurn(ctx, sessionID, insights)

	summary := "No matching records found."
	if len(rows) > 0 {
		summary = "Here are the results."
	}
	return Result{Summary: summary, Insights: insights}, nil
}

func (s *Service) recordAssistantTurn(ctx context.Context, sessionID, content string) {
	err := s.sessions.SaveMessage(ctx, chat.Message{
		SessionID: sessionID,
		Sender:    chat.SenderAssistant,
		Content:   content,
	})
	if err != nil {
		log.Printf("[query] failed to record assistant turn: %v", err)
	}
}

func joinTranscript(messages []chat.Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n")
}

// rowsToJSON renders rows as a JSON array of column/value objects for the
// insight prompt. Values the encoder cannot handle degrade to strings.
func rowsToJSON(rows []repository.Row) string {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		obj := make(map[string]any, len(row.Columns))
		for i, col := range row.Columns {
			if i >= len(row.Values) {
				break
			}
			obj[col] = row.Values[i]
		}
		out = append(out, obj)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf("%v", out)
	}
	return string(data)
}
