package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 60 * time.Second

// Client talks to the chatbot backend's widget contract: session start and
// the smart message route.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client for the given base origin, e.g.
// "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

type startSessionResponse struct {
	SessionID string `json:"session_id"`
}

type sendRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type sendResponse struct {
	Reply string `json:"reply"`
}

// StartSession obtains a new session id from the backend.
func (c *Client) StartSession(ctx context.Context) (string, error) {
	var out startSessionResponse
	if err := c.post(ctx, "/session/start", struct{}{}, &out); err != nil {
		return "", err
	}
	if out.SessionID == "" {
		return "", fmt.Errorf("backend returned an empty session id")
	}
	return out.SessionID, nil
}

// Send delivers one message for the session and returns the reply text.
func (c *Client) Send(ctx context.Context, sessionID, message string) (string, error) {
	var out sendResponse
	err := c.post(ctx, "/smart", sendRequest{Message: message, SessionID: sessionID}, &out)
	if err != nil {
		return "", err
	}
	return out.Reply, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response from %s: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}
