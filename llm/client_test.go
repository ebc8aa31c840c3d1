package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/promptsmith/config"
	"github.com/teilomillet/promptsmith/metrics"
	"github.com/teilomillet/promptsmith/types"
	"github.com/teilomillet/promptsmith/utils"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.NewConfig()
	config.ApplyOptions(cfg,
		config.SetProvider("openai"),
		config.SetModel("gpt-4"),
		config.SetAPIKey("sk-test"),
		config.SetEndpoint(srv.URL),
	)

	client, err := NewClient(cfg, utils.NewNopLogger(), nil, opts...)
	require.NoError(t, err)
	return client
}

func TestClientChat(t *testing.T) {
	var received map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"pong"}}],"usage":{"prompt_tokens":3,"completion_tokens":1}}`))
	})

	out, err := client.Chat(context.Background(), types.Request{
		Conversation: types.NewConversation("sys", "ping"),
		Temperature:  0.3,
		Model:        "gpt-4-turbo",
	})
	require.NoError(t, err)
	assert.Equal(t, "pong", out)
	assert.Equal(t, "gpt-4-turbo", received["model"])
	assert.InDelta(t, 0.3, received["temperature"], 1e-9)
}

func TestClientChatStatusErrors(t *testing.T) {
	testCases := []struct {
		status   int
		expected ErrorType
	}{
		{http.StatusUnauthorized, ErrorTypeAuthentication},
		{http.StatusTooManyRequests, ErrorTypeRateLimit},
		{http.StatusBadGateway, ErrorTypeAPI},
	}

	for _, tc := range testCases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":{"message":"nope"}}`, tc.status)
			})

			_, err := client.Chat(context.Background(), types.Request{Conversation: types.NewConversation("s", "u")})
			var llmErr *LLMError
			require.True(t, errors.As(err, &llmErr))
			assert.Equal(t, tc.expected, llmErr.Type)
			assert.Equal(t, tc.status, llmErr.StatusCode)
		})
	}
}

func TestClientChatMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := client.Chat(context.Background(), types.Request{Conversation: types.NewConversation("s", "u")})
	assert.True(t, IsType(err, ErrorTypeResponse))
}

func TestClientChatRejectsInvalidInput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.Chat(context.Background(), types.Request{})
	assert.True(t, IsType(err, ErrorTypeInvalidInput))

	_, err = client.Chat(context.Background(), types.Request{
		Conversation: types.Conversation{{Role: "narrator", Content: "x"}},
	})
	assert.True(t, IsType(err, ErrorTypeInvalidInput))
}

func TestClientChatSendFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := config.NewConfig()
	config.ApplyOptions(cfg, config.SetAPIKey("sk-test"), config.SetEndpoint(url))
	client, err := NewClient(cfg, nil, nil)
	require.NoError(t, err)

	_, err = client.Chat(context.Background(), types.Request{Conversation: types.NewConversation("s", "u")})
	assert.True(t, IsType(err, ErrorTypeRequest))
}

func TestClientRecordsMetrics(t *testing.T) {
	m := metrics.NewMetrics()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}, WithMetrics(m))

	_, err := client.Chat(context.Background(), types.Request{Conversation: types.NewConversation("s", "u")})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("openai", "ok")))
}

func TestNewClientUnknownProvider(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Provider = "nobody"
	_, err := NewClient(cfg, nil, nil)
	assert.True(t, IsType(err, ErrorTypeProvider))
}

func TestClientStatusErrorLeavesErrorLogToCaller(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := config.NewConfig()
	config.ApplyOptions(cfg, config.SetAPIKey("sk-test"), config.SetEndpoint(srv.URL))
	logger := utils.NewMockLogger()
	client, err := NewClient(cfg, logger, nil)
	require.NoError(t, err)

	_, err = client.Chat(context.Background(), types.Request{
		Conversation: types.NewConversation("sys", "ping"),
		Model:        "gpt-4",
	})
	require.True(t, IsType(err, ErrorTypeAPI))
	assert.Zero(t, logger.CountLevel("ERROR"))
}
