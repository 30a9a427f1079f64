// Package repository is the ERP Postgres access layer: sanitized read-only
// query execution against the open-order view, a cached schema snapshot for
// the SQL prompt, and durable chat-history records.
package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openorder-ai/erp-chatbot/internal/config"
	"github.com/openorder-ai/erp-chatbot/internal/model/chat"
)

// Row is one result row in column order.
type Row struct {
	Columns []string
	Values  []any
}

// Store wraps the pgx pool with the chatbot's three concerns.
type Store struct {
	pool   *pgxpool.Pool
	schema string
	table  string

	cacheTTL      time.Duration
	cacheMu       sync.Mutex
	schemaCache   string
	schemaFetched time.Time
}

// New connects the pool and verifies the database is reachable.
func New(ctx context.Context, cfg config.DatabaseConfig, cacheTTL time.Duration) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &Store{
		pool:     pool,
		schema:   cfg.Schema,
		table:    cfg.Table,
		cacheTTL: cacheTTL,
	}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the chat_history table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.chat_history (
		id SERIAL PRIMARY KEY,
		session_id VARCHAR(200) NOT NULL,
		user_message TEXT,
		generated_sql TEXT,
		ai_message TEXT,
		timestamp TIMESTAMPTZ DEFAULT now()
	)`, s.schema)

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to ensure chat_history table: %w", err)
	}
	return nil
}

// SchemaSnapshot renders "schema.table(col:type, ...)" for the SQL prompt,
// cached with a TTL so view changes propagate without a restart.
func (s *Store) SchemaSnapshot(ctx context.Context) (string, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if s.schemaCache != "" && time.Since(s.schemaFetched) < s.cacheTTL {
		return s.schemaCache, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT column_name, data_type FROM information_schema.columns
		 WHERE table_schema = $1 AND table_name = $2
		 ORDER BY ordinal_position`,
		s.schema, s.table)
	if err != nil {
		return "", fmt.Errorf("failed to read schema: %w", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return "", fmt.Errorf("failed to scan schema row: %w", err)
		}
		cols = append(cols, fmt.Sprintf("%s:%s", name, dataType))
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to iterate schema rows: %w", err)
	}

	s.schemaCache = fmt.Sprintf("%s.%s(%s)", s.schema, s.table, strings.Join(cols, ", "))
	s.schemaFetched = time.Now()
	return s.schemaCache, nil
}

// RunQuery executes an already-sanitized statement and returns all rows.
func (s *Store) RunQuery(ctx context.Context, sql string) ([]Row, error) {
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	var result []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}
		result = append(result, Row{Columns: columns, Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	return result, nil
}

// SaveChatRecord inserts one chat_history row. Failures are the caller's to
// log; the conversation itself must not depend on audit persistence.
func (s *Store) SaveChatRecord(ctx context.Context, record chat.Record) error {
	query := fmt.Sprintf(
		`INSERT INTO %s.chat_history (session_id, user_message, generated_sql, ai_message) VALUES ($1, $2, $3, $4)`,
		s.schema)

	_, err := s.pool.Exec(ctx, query,
		record.SessionID, record.UserMessage, record.GeneratedSQL, record.AIMessage)
	if err != nil {
		return fmt.Errorf("failed to save chat record: %w", err)
	}
	return nil
}
