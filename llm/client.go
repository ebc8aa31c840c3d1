package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/teilomillet/promptsmith/config"
	"github.com/teilomillet/promptsmith/metrics"
	"github.com/teilomillet/promptsmith/providers"
	"github.com/teilomillet/promptsmith/types"
	"github.com/teilomillet/promptsmith/utils"
)

// Chatter sends one chat request and returns the reply text.
type Chatter interface {
	Chat(ctx context.Context, req types.Request) (string, error)
}

// Client performs a single HTTP attempt per Chat call. Retries belong to the
// dispatcher, memoization to the cache.
type Client struct {
	Provider    providers.Provider
	client      *http.Client
	logger      utils.Logger
	metrics     *metrics.Metrics
	countTokens bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client built from the configured timeout.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.client = httpClient
	}
}

// WithMetrics records every request in m.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTokenCounting logs the prompt token count of every request.
func WithTokenCounting(enabled bool) ClientOption {
	return func(c *Client) {
		c.countTokens = enabled
	}
}

// NewClient builds a client for cfg.Provider. A nil registry means the default one.
func NewClient(cfg *config.Config, logger utils.Logger, registry *providers.ProviderRegistry, opts ...ClientOption) (*Client, error) {
	if registry == nil {
		registry = providers.NewProviderRegistry()
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	provider, err := registry.Get(cfg.Provider, cfg.APIKey(), cfg.Model, cfg.ExtraHeaders)
	if err != nil {
		return nil, NewLLMError(ErrorTypeProvider, "failed to create provider", err)
	}
	provider.SetLogger(logger)
	provider.SetDefaultOptions(cfg)
	if cfg.Endpoint != "" {
		provider.SetEndpoint(cfg.Endpoint)
	}

	c := &Client{
		Provider:    provider,
		client:      &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
		countTokens: cfg.CountTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Chat sends req to the provider. Every failure is returned as an *LLMError.
func (c *Client) Chat(ctx context.Context, req types.Request) (string, error) {
	if err := c.validate(req); err != nil {
		return "", err
	}

	if c.countTokens {
		if n, err := CountTokens(req.Conversation, req.Model); err == nil {
			c.logger.Debug("Prompt size", "provider", c.Provider.Name(), "model", req.Model, "tokens", n)
		} else {
			c.logger.Warn("Token counting failed", "error", err)
		}
	}

	start := time.Now()
	result, err := c.attempt(ctx, req)

	status := "ok"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordLLMRequest(c.Provider.Name(), status, time.Since(start))

	return result, err
}

func (c *Client) validate(req types.Request) error {
	if len(req.Conversation) == 0 {
		return NewLLMError(ErrorTypeInvalidInput, "conversation is empty", nil)
	}
	for i := range req.Conversation {
		if err := Validate(&req.Conversation[i]); err != nil {
			return NewLLMError(ErrorTypeInvalidInput, fmt.Sprintf("invalid message %d", i), err)
		}
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, req types.Request) (string, error) {
	temperature := req.Temperature
	reqBody, err := c.Provider.PrepareRequest(&providers.Request{
		Model:       req.Model,
		Temperature: &temperature,
		Messages:    req.Conversation,
	}, nil)
	if err != nil {
		return "", NewLLMError(ErrorTypeRequest, "failed to prepare request", err)
	}
	c.logger.Debug("Request body", "provider", c.Provider.Name(), "body", string(reqBody))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Provider.Endpoint(), bytes.NewReader(reqBody))
	if err != nil {
		return "", NewLLMError(ErrorTypeRequest, "failed to create request", err)
	}
	for k, v := range c.Provider.Headers() {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", NewLLMError(ErrorTypeRequest, "failed to send request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewLLMError(ErrorTypeResponse, "failed to read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("API error", "provider", c.Provider.Name(), "status", resp.StatusCode, "body", string(body))
		return "", NewStatusError(resp.StatusCode, string(body))
	}

	result, err := c.Provider.ParseResponse(body)
	if err != nil {
		return "", NewLLMError(ErrorTypeResponse, "failed to parse response", err)
	}
	if result.Usage != nil {
		c.logger.Debug("Token usage", "provider", c.Provider.Name(),
			"input_tokens", result.Usage.InputTokens, "output_tokens", result.Usage.OutputTokens)
	}

	text := result.AsText()
	c.logger.Debug("Text generated successfully", "provider", c.Provider.Name(), "length", len(text))
	return text, nil
}
