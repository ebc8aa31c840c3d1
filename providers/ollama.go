package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/teilomillet/promptsmith/config"
	"github.com/teilomillet/promptsmith/utils"
)

// OllamaProvider implements the Provider interface for a locally hosted Ollama
// server using its /api/chat endpoint. Ollama needs no API key.
type OllamaProvider struct {
	baseURL      string
	model        string
	extraHeaders map[string]string
	options      map[string]any
	logger       utils.Logger
}

func NewOllamaProvider(_ string, model string, extraHeaders map[string]string) *OllamaProvider {
	return &OllamaProvider{
		baseURL:      "http://localhost:11434",
		model:        model,
		extraHeaders: copyHeaders(extraHeaders),
		options:      make(map[string]any),
		logger:       utils.NewNopLogger(),
	}
}

func (p *OllamaProvider) Name() string                  { return "ollama" }
func (p *OllamaProvider) Endpoint() string              { return p.baseURL + "/api/chat" }
func (p *OllamaProvider) SetLogger(logger utils.Logger) { p.logger = logger }

// SetEndpoint accepts either the server base URL or the full /api/chat URL.
func (p *OllamaProvider) SetEndpoint(endpoint string) {
	endpoint = strings.TrimSuffix(endpoint, "/")
	p.baseURL = strings.TrimSuffix(endpoint, "/api/chat")
}

func (p *OllamaProvider) SetOption(key string, value any) {
	p.options[key] = value
}

func (p *OllamaProvider) SetDefaultOptions(cfg *config.Config) {
	p.SetOption("temperature", cfg.Temperature)
	p.SetOption("num_predict", cfg.MaxTokens)
}

func (p *OllamaProvider) SetExtraHeaders(extraHeaders map[string]string) {
	p.extraHeaders = copyHeaders(extraHeaders)
}

func (p *OllamaProvider) Headers() map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	for k, v := range p.extraHeaders {
		headers[k] = v
	}
	return headers
}

// PrepareRequest puts sampling parameters under "options" as Ollama expects.
func (p *OllamaProvider) PrepareRequest(req *Request, options map[string]any) ([]byte, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, errors.New("request has no messages")
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	modelOptions := make(map[string]any, len(p.options)+len(options))
	for k, v := range p.options {
		modelOptions[k] = v
	}
	for k, v := range options {
		modelOptions[k] = v
	}
	if req.Temperature != nil {
		modelOptions["temperature"] = *req.Temperature
	}

	return json.Marshal(map[string]any{
		"model":    model,
		"messages": req.Messages,
		"stream":   false,
		"options":  modelOptions,
	})
}

func (p *OllamaProvider) ParseResponse(body []byte) (*Response, error) {
	var response struct {
		Message *struct {
			Content string `json:"content"`
		} `json:"message"`
		PromptEvalCount int64  `json:"prompt_eval_count"`
		EvalCount       int64  `json:"eval_count"`
		Error           string `json:"error"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("api error: %s", response.Error)
	}
	if response.Message == nil {
		return nil, errors.New("empty response from API")
	}

	return &Response{
		Content: Text{Value: response.Message.Content},
		Usage:   NewUsage(response.PromptEvalCount, response.EvalCount),
	}, nil
}
