package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/teilomillet/promptsmith/config"
	"github.com/teilomillet/promptsmith/types"
	"github.com/teilomillet/promptsmith/utils"
)

const anthropicDefaultMaxTokens = 1024

// AnthropicProvider implements the Provider interface for the Anthropic messages API.
// System messages are lifted out of the conversation into the top-level system field.
type AnthropicProvider struct {
	endpoint     string
	apiKey       string
	model        string
	extraHeaders map[string]string
	options      map[string]any
	logger       utils.Logger
}

func NewAnthropicProvider(apiKey, model string, extraHeaders map[string]string) *AnthropicProvider {
	return &AnthropicProvider{
		endpoint:     "https://api.anthropic.com/v1/messages",
		apiKey:       apiKey,
		model:        model,
		extraHeaders: copyHeaders(extraHeaders),
		options:      make(map[string]any),
		logger:       utils.NewNopLogger(),
	}
}

func (p *AnthropicProvider) Name() string                  { return "anthropic" }
func (p *AnthropicProvider) Endpoint() string              { return p.endpoint }
func (p *AnthropicProvider) SetEndpoint(endpoint string)   { p.endpoint = endpoint }
func (p *AnthropicProvider) SetLogger(logger utils.Logger) { p.logger = logger }

func (p *AnthropicProvider) SetOption(key string, value any) {
	p.options[key] = value
}

func (p *AnthropicProvider) SetDefaultOptions(cfg *config.Config) {
	p.SetOption("temperature", cfg.Temperature)
	p.SetOption("max_tokens", cfg.MaxTokens)
}

func (p *AnthropicProvider) SetExtraHeaders(extraHeaders map[string]string) {
	p.extraHeaders = copyHeaders(extraHeaders)
}

func (p *AnthropicProvider) Headers() map[string]string {
	headers := map[string]string{
		"Content-Type":      "application/json",
		"x-api-key":         p.apiKey,
		"anthropic-version": "2023-06-01",
	}
	for k, v := range p.extraHeaders {
		headers[k] = v
	}
	return headers
}

func (p *AnthropicProvider) PrepareRequest(req *Request, options map[string]any) ([]byte, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, errors.New("request has no messages")
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	messages := make([]map[string]any, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == types.RoleSystem {
			continue
		}
		messages = append(messages, map[string]any{
			"role":    m.Role,
			"content": m.Content,
		})
	}
	if len(messages) == 0 {
		return nil, errors.New("request has no user or assistant messages")
	}

	body := map[string]any{
		"model":      model,
		"max_tokens": anthropicDefaultMaxTokens,
		"messages":   messages,
	}
	if system := req.SystemPrompt(); system != "" {
		body["system"] = system
	}
	for k, v := range p.options {
		body[k] = v
	}
	for k, v := range options {
		body[k] = v
	}
	if req.Temperature != nil {
		// Anthropic caps temperature at 1.
		body["temperature"] = min(*req.Temperature, 1.0)
	}

	return json.Marshal(body)
}

func (p *AnthropicProvider) ParseResponse(body []byte) (*Response, error) {
	var response struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage *struct {
			InputTokens  int64 `json:"input_tokens"`
			OutputTokens int64 `json:"output_tokens"`
		} `json:"usage"`
		Error *struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}
	if response.Error != nil {
		return nil, fmt.Errorf("api error (%s): %s", response.Error.Type, response.Error.Message)
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if len(response.Content) == 0 {
		return nil, errors.New("empty response from API")
	}

	out := &Response{Content: Text{Value: text.String()}}
	if response.Usage != nil {
		out.Usage = NewUsage(response.Usage.InputTokens, response.Usage.OutputTokens)
	}
	return out, nil
}
