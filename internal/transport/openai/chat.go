package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/metrics"
)

const (
	modeStream   = "stream"
	modeComplete = "complete"
)

// Client is a chat-completion client for an OpenAI-compatible API (DeepSeek by default).
type Client struct {
	client          *openai.Client
	hasKey          bool
	model           string
	temperature     float32
	maxTokens       int
	streamMaxTokens int
	timeout         time.Duration
	streamTimeout   time.Duration
	limiter         *rate.Limiter
	logger          *zap.Logger
}

// Config holds the LLM provider settings.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	Temperature     float32
	MaxTokens       int
	StreamMaxTokens int
	Timeout         time.Duration
	StreamTimeout   time.Duration
	RatePerSecond   float64 // <= 0 disables limiting
	Burst           int
	Logger          *zap.Logger
}

// NewClient creates a chat-completion client.
func NewClient(cfg *Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	return &Client{
		client:          openai.NewClientWithConfig(clientCfg),
		hasKey:          cfg.APIKey != "",
		model:           cfg.Model,
		temperature:     cfg.Temperature,
		maxTokens:       cfg.MaxTokens,
		streamMaxTokens: cfg.StreamMaxTokens,
		timeout:         cfg.Timeout,
		streamTimeout:   cfg.StreamTimeout,
		limiter:         limiter,
		logger:          cfg.Logger,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Complete runs a non-streaming completion and returns the message content.
func (c *Client) Complete(ctx context.Context, p domain.Prompt) (string, error) {
	if err := c.ready(ctx); err != nil {
		return "", err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, c.request(p, c.maxTokens, false))
	if err != nil {
		c.fail(modeComplete, "api_error")
		return "", parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		c.fail(modeComplete, "empty_response")
		return "", fmt.Errorf("empty completion response: %w", domain.ErrUpstream)
	}

	metrics.LLMRequestsTotal.WithLabelValues(c.model, modeComplete, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(c.model, modeComplete).Observe(time.Since(start).Seconds())

	return resp.Choices[0].Message.Content, nil
}

// Stream opens a streaming completion. The whole stream is bounded by the
// stream timeout; Close must be called to release it.
func (c *Client) Stream(ctx context.Context, p domain.Prompt) (domain.ContentStream, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	cancel := context.CancelFunc(func() {})
	if c.streamTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.streamTimeout)
	}

	start := time.Now()
	stream, err := c.client.CreateChatCompletionStream(ctx, c.request(p, c.streamMaxTokens, true))
	if err != nil {
		cancel()
		c.fail(modeStream, "api_error")
		return nil, parseAPIError(err)
	}

	metrics.LLMRequestsTotal.WithLabelValues(c.model, modeStream, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(c.model, modeStream).Observe(time.Since(start).Seconds())

	return &ChatStream{stream: stream, cancel: cancel, model: c.model}, nil
}

// HealthCheck verifies API availability via ListModels.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.hasKey {
		return domain.ErrNoCredential
	}
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (c *Client) ready(ctx context.Context) error {
	if !c.hasKey {
		return domain.ErrNoCredential
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

func (c *Client) request(p domain.Prompt, maxTokens int, stream bool) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if p.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.System})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: p.User})

	return openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: c.temperature,
		MaxTokens:   maxTokens,
		Stream:      stream,
	}
}

func (c *Client) fail(mode, errType string) {
	metrics.LLMRequestsTotal.WithLabelValues(c.model, mode, "error").Inc()
	metrics.LLMErrorsTotal.WithLabelValues(c.model, errType).Inc()
}

// ChatStream yields content deltas of a streaming completion.
type ChatStream struct {
	stream *openai.ChatCompletionStream
	cancel context.CancelFunc
	model  string
}

// Recv returns the next non-empty content delta, or io.EOF after [DONE].
func (s *ChatStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			metrics.LLMErrorsTotal.WithLabelValues(s.model, "stream_error").Inc()
			return "", parseAPIError(err)
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

// Close releases the underlying HTTP response.
func (s *ChatStream) Close() error {
	s.cancel()
	return s.stream.Close() //nolint:wrapcheck // delegating to the stream
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrUpstream.
func parseAPIError(err error) error {
	wrap := domain.ErrUpstream

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("llm API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("llm API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("llm request failed: %w: %w", wrap, err)
}

// extractDetail extracts the error message from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
		Error  struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Detail != "" {
		return parsed.Detail
	}
	return parsed.Error.Message
}
