package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// QueryTemplate wraps text pulled from the watched window.
const QueryTemplate = "How would you answer the following:\n%s"

// Sampling parameters sent with every text query.
const (
	Temperature = 1.0
	TopP        = 1.0
	MaxTokens   = 8192
)

const defaultTimeout = 60 * time.Second

// ErrMissingAPIKey is returned on the first request made without a credential.
var ErrMissingAPIKey = errors.New("API key is required (set API_KEY or API_KEY_FILE)")

type Config struct {
	APIKey      string
	Endpoint    string
	TextModel   string
	VisionModel string
	Timeout     time.Duration
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: timeout}}
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	TopP        float64   `json:"top_p"`
	Stream      bool      `json:"stream"`
	Stop        *string   `json:"stop"`
}

type ChatResponse struct {
	Choices []Choice  `json:"choices"`
	Error   *APIError `json:"error,omitempty"`
}

type Choice struct {
	Message ResponseMessage `json:"message"`
}

type ResponseMessage struct {
	Content string `json:"content"`
}

type APIError struct {
	Message string      `json:"message"`
	Type    string      `json:"type"`
	Code    interface{} `json:"code"` // Can be string or number
}

// Result is a successful text query.
type Result struct {
	StatusCode int
	// Body is the raw response body.
	Body string
	// Content is choices[0].message.content when Body parses as a chat
	// completion, otherwise empty.
	Content string
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if text := http.StatusText(e.Code); text != "" {
		return fmt.Sprintf("API returned status %d %s", e.Code, text)
	}
	return fmt.Sprintf("API returned status %d", e.Code)
}

// BuildTextQuery wraps text in the fixed prompt as a one-message conversation.
func BuildTextQuery(text string) []Message {
	return []Message{{Role: "user", Content: fmt.Sprintf(QueryTemplate, text)}}
}

// Query sends text to the text model and returns the raw response. It makes
// exactly one attempt.
func (c *Client) Query(ctx context.Context, text string) (Result, error) {
	if c.cfg.APIKey == "" {
		return Result{}, ErrMissingAPIKey
	}
	if c.cfg.TextModel == "" {
		return Result{}, fmt.Errorf("text model is required")
	}

	request := ChatRequest{
		Model:       c.cfg.TextModel,
		Messages:    BuildTextQuery(text),
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
		TopP:        TopP,
		Stream:      false,
	}

	status, body, err := c.post(ctx, request)
	if err != nil {
		return Result{}, err
	}
	if status < 200 || status > 299 {
		return Result{StatusCode: status, Body: string(body)}, &StatusError{Code: status, Body: string(body)}
	}

	return Result{StatusCode: status, Body: string(body), Content: firstChoice(body)}, nil
}

func (c *Client) post(ctx context.Context, payload any) (int, []byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func firstChoice(body []byte) string {
	var response ChatResponse
	if err := json.Unmarshal(body, &response); err != nil || len(response.Choices) == 0 {
		return ""
	}
	return response.Choices[0].Message.Content
}
