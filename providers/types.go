package providers

import (
	"github.com/teilomillet/promptsmith/types"
)

// Request is the provider-neutral chat request.
type Request struct {
	Model       string          `json:"model,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	Messages    []types.Message `json:"messages"`
}

// SystemPrompt returns the concatenated content of the system messages.
func (r *Request) SystemPrompt() string {
	var out string
	for _, m := range r.Messages {
		if m.Role != types.RoleSystem {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += m.Content
	}
	return out
}

// Response represents the response from an LLM model.
type Response struct {
	Content Content
	Usage   *Usage `json:"usage,omitempty"`
}

// Content is a sealed interface for different types of content in a response. Currently, text content only.
type Content interface {
	isContent()
}

// AsText attempts to extract the text content from the response.
func (r *Response) AsText() string {
	if r == nil {
		return ""
	}
	if textContent, ok := r.Content.(Text); ok {
		return textContent.Value
	}
	return ""
}

// Text represents text content in a response.
type Text struct {
	Value string
}

func (t Text) isContent() {}

// Usage represents the token usage reported by the provider.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

func NewUsage(inputTokens, outputTokens int64) *Usage {
	return &Usage{
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  inputTokens + outputTokens,
	}
}
