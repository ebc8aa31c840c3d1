package providers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/promptsmith/config"
	"github.com/teilomillet/promptsmith/types"
)

func TestOllamaEndpoint(t *testing.T) {
	provider := NewOllamaProvider("", "llama3", nil)
	assert.Equal(t, "http://localhost:11434/api/chat", provider.Endpoint())

	provider.SetEndpoint("http://gpu-box:11434/api/chat/")
	assert.Equal(t, "http://gpu-box:11434/api/chat", provider.Endpoint())

	provider.SetEndpoint("http://other:8080")
	assert.Equal(t, "http://other:8080/api/chat", provider.Endpoint())
}

func TestOllamaPrepareRequest(t *testing.T) {
	provider := NewOllamaProvider("", "llama3", nil)
	provider.SetDefaultOptions(&config.Config{Temperature: 0.2, MaxTokens: 64})

	body, err := provider.PrepareRequest(&Request{Messages: types.NewConversation("sys", "hi")}, nil)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "llama3", decoded["model"])
	assert.Equal(t, false, decoded["stream"])

	options := decoded["options"].(map[string]any)
	assert.InDelta(t, 0.2, options["temperature"], 1e-9)
	assert.EqualValues(t, 64, options["num_predict"])
}

func TestOllamaParseResponse(t *testing.T) {
	provider := NewOllamaProvider("", "llama3", nil)

	resp, err := provider.ParseResponse([]byte(`{"message": {"role": "assistant", "content": "ok"}, "prompt_eval_count": 7, "eval_count": 2}`))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.AsText())
	assert.Equal(t, int64(9), resp.Usage.TotalTokens)

	_, err = provider.ParseResponse([]byte(`{"error": "model not found"}`))
	assert.ErrorContains(t, err, "model not found")
}
