package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/teilomillet/promptsmith/config"
	"github.com/teilomillet/promptsmith/utils"
)

// OpenAIProvider speaks the OpenAI chat completions format. The same type serves
// every OpenAI-compatible endpoint (groq, deepseek, mistral, openrouter); only the
// name and default endpoint differ.
type OpenAIProvider struct {
	name         string
	endpoint     string
	apiKey       string
	model        string
	extraHeaders map[string]string
	options      map[string]any
	logger       utils.Logger
}

// NewOpenAIProvider creates a new OpenAI provider instance
func NewOpenAIProvider(apiKey, model string, extraHeaders map[string]string) *OpenAIProvider {
	return NewOpenAICompatibleProvider("openai", "https://api.openai.com/v1/chat/completions", apiKey, model, extraHeaders)
}

// NewOpenAICompatibleProvider creates a provider for any endpoint that accepts the
// OpenAI chat completions body.
func NewOpenAICompatibleProvider(name, endpoint, apiKey, model string, extraHeaders map[string]string) *OpenAIProvider {
	return &OpenAIProvider{
		name:         name,
		endpoint:     endpoint,
		apiKey:       apiKey,
		model:        model,
		extraHeaders: copyHeaders(extraHeaders),
		options:      make(map[string]any),
		logger:       utils.NewNopLogger(),
	}
}

func (p *OpenAIProvider) Name() string                  { return p.name }
func (p *OpenAIProvider) Endpoint() string              { return p.endpoint }
func (p *OpenAIProvider) SetEndpoint(endpoint string)   { p.endpoint = endpoint }
func (p *OpenAIProvider) SetLogger(logger utils.Logger) { p.logger = logger }

// SetOption sets a specific option for the provider
func (p *OpenAIProvider) SetOption(key string, value any) {
	p.options[key] = value
	p.logger.Debug("Option set", "provider", p.name, "key", key, "value", value)
}

// SetDefaultOptions sets default options based on the provided configuration
func (p *OpenAIProvider) SetDefaultOptions(cfg *config.Config) {
	p.SetOption("temperature", cfg.Temperature)
	p.SetOption("max_tokens", cfg.MaxTokens)
}

// SetExtraHeaders sets additional headers for the API request
func (p *OpenAIProvider) SetExtraHeaders(extraHeaders map[string]string) {
	p.extraHeaders = copyHeaders(extraHeaders)
}

// Headers returns the necessary headers for API requests
func (p *OpenAIProvider) Headers() map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}
	for key, value := range p.extraHeaders {
		headers[key] = value
	}
	return headers
}

// needsMaxCompletionTokens reports whether the model rejects max_tokens in favour
// of max_completion_tokens.
func (p *OpenAIProvider) needsMaxCompletionTokens(model string) bool {
	if p.name != "openai" {
		return false
	}
	return strings.HasPrefix(model, "o") || strings.HasPrefix(model, "gpt-4o") || strings.HasPrefix(model, "gpt-5")
}

// PrepareRequest prepares the request body for the API call
func (p *OpenAIProvider) PrepareRequest(req *Request, options map[string]any) ([]byte, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, errors.New("request has no messages")
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	body := map[string]any{
		"model":    model,
		"messages": req.Messages,
	}
	for k, v := range p.options {
		body[k] = v
	}
	for k, v := range options {
		body[k] = v
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if maxTokens, ok := body["max_tokens"]; ok && p.needsMaxCompletionTokens(model) {
		delete(body, "max_tokens")
		body["max_completion_tokens"] = maxTokens
	}

	reqJSON, err := json.Marshal(body)
	if err != nil {
		p.logger.Error("Failed to marshal request", "provider", p.name, "error", err)
		return nil, err
	}
	return reqJSON, nil
}

// ParseResponse parses the API response
func (p *OpenAIProvider) ParseResponse(body []byte) (*Response, error) {
	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage *struct {
			PromptTokens     int64 `json:"prompt_tokens"`
			CompletionTokens int64 `json:"completion_tokens"`
		} `json:"usage"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}
	if response.Error != nil {
		return nil, fmt.Errorf("api error: %s", response.Error.Message)
	}
	if len(response.Choices) == 0 {
		return nil, errors.New("empty response from API")
	}

	out := &Response{Content: Text{Value: response.Choices[0].Message.Content}}
	if response.Usage != nil {
		out.Usage = NewUsage(response.Usage.PromptTokens, response.Usage.CompletionTokens)
	}
	return out, nil
}
