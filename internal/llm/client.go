// Package llm talks to OpenAI-compatible chat completion endpoints such as
// Groq's hosted models.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"logclassifier/internal/config"
)

var (
	// ErrNoAPIKey is returned before any network call when no key is configured
	ErrNoAPIKey = errors.New("llm: api key not configured")
	// ErrEmptyResponse means the endpoint answered without any choices
	ErrEmptyResponse = errors.New("llm: empty response")
)

// StatusError carries a non-2xx response from the endpoint
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm: endpoint returned %d: %s", e.StatusCode, e.Body)
}

// retryable reports whether a later attempt could succeed
func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client calls an OpenAI-compatible chat completion endpoint.
type Client struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxRetries  int

	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Logger     *slog.Logger

	// backoff is the delay before retry n (1-based)
	backoff func(attempt int) time.Duration
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient builds a client from configuration
func NewClient(cfg config.LLMConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxRetries:  cfg.MaxRetries,
		HTTPClient:  &http.Client{Timeout: cfg.Timeout},
		Limiter:     rate.NewLimiter(rate.Limit(cfg.RPS), burst),
		Logger:      logger.With(slog.String("component", "llm_client")),
	}
}

// Configured reports whether Chat can reach the endpoint at all
func (c *Client) Configured() bool {
	return c.APIKey != "" && c.BaseURL != "" && c.Model != ""
}

// Chat sends a single user message and returns the first choice's content.
// Rate limiting (429) and server errors are retried with exponential backoff.
func (c *Client) Chat(ctx context.Context, user string) (string, error) {
	if c.APIKey == "" {
		return "", ErrNoAPIKey
	}
	if c.BaseURL == "" || c.Model == "" {
		return "", fmt.Errorf("llm: base URL and model required")
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.Model,
		Messages:    []chatMessage{{Role: "user", Content: user}},
		Temperature: c.Temperature,
	})
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.delay(attempt)
			c.logger().WarnContext(ctx, "retrying llm request",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("error", lastErr.Error()))

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
		}

		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		content, err := c.send(ctx, body)
		if err == nil {
			return content, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.retryable() {
			return "", err
		}
		if errors.Is(err, ErrEmptyResponse) {
			return "", err
		}
	}

	return "", fmt.Errorf("llm: giving up after %d attempts: %w", c.MaxRetries+1, lastErr)
}

func (c *Client) send(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}

	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}
	if payload.Error != nil {
		return "", fmt.Errorf("llm error: %s", payload.Error.Message)
	}
	if len(payload.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return payload.Choices[0].Message.Content, nil
}

func (c *Client) delay(attempt int) time.Duration {
	if c.backoff != nil {
		return c.backoff(attempt)
	}
	return time.Duration(1<<(attempt-1)) * 500 * time.Millisecond
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 45 * time.Second}
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
