package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every setting the service reads from the environment.
type Config struct {
	Server   ServerConfig
	AI       AIConfig
	Database DatabaseConfig
	Chatbot  ChatbotConfig
	Widget   WidgetConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	db, err := loadDatabaseConfig()
	if err != nil {
		return nil, err
	}

	chatbot, err := loadChatbotConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		AI:       ai,
		Database: db,
		Chatbot:  chatbot,
		Widget:   loadWidgetConfig(),
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" verbatim.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the Ark chat model credentials and per-chain sampling.
type AIConfig struct {
	APIKey    string
	AccessKey string
	SecretKey string
	Model     string
	BaseURL   string
	Region    string
	MaxTokens *int

	// Per-chain temperatures. SQL generation wants determinism, insight
	// and small-talk tolerate some variety.
	SQLTemperature     float32
	InsightTemperature float32
	ChatTemperature    float32

	StreamResponse bool
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds an Ark model instance with the given temperature.
func (c AIConfig) NewChatModel(ctx context.Context, temperature float32) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials missing: provide ARK_API_KEY + ARK_MODEL or AK/SK pair")
	}

	temp := temperature

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: &temp,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	sqlTemp, err := parseFloat32Env("SQL_LLM_TEMPERATURE", 0.0)
	if err != nil {
		return AIConfig{}, err
	}

	insightTemp, err := parseFloat32Env("INSIGHT_LLM_TEMPERATURE", 0.2)
	if err != nil {
		return AIConfig{}, err
	}

	chatTemp, err := parseFloat32Env("CHAT_LLM_TEMPERATURE", 0.4)
	if err != nil {
		return AIConfig{}, err
	}

	stream, err := parseBoolEnv("ARK_STREAM", true)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:             strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:          strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:          strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:              strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:            getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:             getEnvOrDefault("ARK_REGION", "cn-beijing"),
		MaxTokens:          maxTokens,
		SQLTemperature:     sqlTemp,
		InsightTemperature: insightTemp,
		ChatTemperature:    chatTemp,
		StreamResponse:     stream,
	}, nil
}

// DatabaseConfig describes the ERP Postgres connection and the single view
// the chatbot is allowed to query.
type DatabaseConfig struct {
	URL    string
	Schema string
	Table  string
}

// Enabled reports whether a connection string was provided.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

func loadDatabaseConfig() (DatabaseConfig, error) {
	return DatabaseConfig{
		URL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		Schema: getEnvOrDefault("DATABASE_SCHEMA", "slspurcinv"),
		Table:  getEnvOrDefault("DATABASE_TABLE", "v_open_order"),
	}, nil
}

// ChatbotConfig holds the session and query pipeline knobs.
type ChatbotConfig struct {
	RowLimit        int
	SessionTimeout  time.Duration
	CleanupInterval time.Duration
	SchemaCacheTTL  time.Duration
	HistoryLimit    int
}

func loadChatbotConfig() (ChatbotConfig, error) {
	rowLimit, err := parseIntEnv("ROW_LIMIT", 100)
	if err != nil {
		return ChatbotConfig{}, err
	}

	timeoutMinutes, err := parseIntEnv("SESSION_TIMEOUT_MINUTES", 30)
	if err != nil {
		return ChatbotConfig{}, err
	}

	cleanupSeconds, err := parseIntEnv("CLEANUP_INTERVAL_SECONDS", 60)
	if err != nil {
		return ChatbotConfig{}, err
	}

	schemaTTLSeconds, err := parseIntEnv("SCHEMA_CACHE_TTL_SECONDS", 3600)
	if err != nil {
		return ChatbotConfig{}, err
	}

	historyLimit, err := parseIntEnv("HISTORY_LIMIT", 10)
	if err != nil {
		return ChatbotConfig{}, err
	}

	return ChatbotConfig{
		RowLimit:        rowLimit,
		SessionTimeout:  time.Duration(timeoutMinutes) * time.Minute,
		CleanupInterval: time.Duration(cleanupSeconds) * time.Second,
		SchemaCacheTTL:  time.Duration(schemaTTLSeconds) * time.Second,
		HistoryLimit:    historyLimit,
	}, nil
}

// WidgetConfig is read by the terminal widget binary.
type WidgetConfig struct {
	BaseURL string
}

func loadWidgetConfig() WidgetConfig {
	return WidgetConfig{
		BaseURL: getEnvOrDefault("CHAT_BASE_URL", "http://localhost:8080"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseFloat32Env(key string, defaultValue float32) (float32, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return float32(val), nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
