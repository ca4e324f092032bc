package flowise

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Maris2112/tsunamibot-whatsapp/pkg/config"
	providertypes "github.com/Maris2112/tsunamibot-whatsapp/pkg/provider/types"
)

const defaultRequestTimeout = 60 * time.Second

// Client speaks the Flowise prediction HTTP contract: POST a question plus
// chat history, read back a JSON object with a "text" field.
type Client struct {
	url            string
	httpClient     *http.Client
	requestTimeout time.Duration
	noAnswerReply  string
}

type askRequest struct {
	Question    string               `json:"question"`
	ChatHistory []providertypes.Turn `json:"chatHistory"`
}

type askResponse struct {
	Text json.RawMessage `json:"text"`
}

func New(cfg config.FlowiseConfig) (*Client, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, errors.New("FLOWISE_URL is required")
	}

	requestTimeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	return &Client{
		url:            url,
		httpClient:     &http.Client{Timeout: requestTimeout},
		requestTimeout: requestTimeout,
		noAnswerReply:  cfg.NoAnswerReply,
	}, nil
}

// Health probes the prediction endpoint for reachability. Any HTTP
// response counts as healthy; Flowise has no dedicated health route.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("flowise unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

// Ask sends one question and returns the raw "text" value, which may be a
// string or a list depending on the flow. A successful response without a
// text field yields the configured no-answer reply.
func (c *Client) Ask(ctx context.Context, question string, history []providertypes.Turn) (any, error) {
	log := providerLogger().With("operation", "ask")
	startedAt := time.Now()
	log.Debug("provider request started", "question_length", len(question))

	if history == nil {
		// Marshal as [] rather than null; the Flowise API expects a list.
		history = []providertypes.Turn{}
	}

	body, err := json.Marshal(askRequest{Question: question, ChatHistory: history})
	if err != nil {
		return nil, fmt.Errorf("encode flowise request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build flowise request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return nil, fmt.Errorf("flowise request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "status", resp.StatusCode)
		return nil, fmt.Errorf("flowise status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var answer askResponse
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return nil, fmt.Errorf("decode flowise response: %w", err)
	}

	log.Debug("provider request completed", "duration_ms", time.Since(startedAt).Milliseconds())

	if len(answer.Text) == 0 || string(answer.Text) == "null" {
		return c.noAnswerReply, nil
	}

	var value any
	if err := json.Unmarshal(answer.Text, &value); err != nil {
		return nil, fmt.Errorf("decode flowise text field: %w", err)
	}

	return value, nil
}

func providerLogger() *slog.Logger {
	return slog.Default().With("component", "provider.flowise")
}
