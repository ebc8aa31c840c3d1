package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/promptsmith/config"
	"github.com/teilomillet/promptsmith/utils"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "gpt-3.5-turbo", cfg.Model)
	assert.InDelta(t, 0.1, cfg.Temperature, 1e-9)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.RetryInterval)
	assert.Equal(t, utils.LogLevelWarn, cfg.LogLevel)
	assert.Equal(t, config.CacheBackendFile, cfg.CacheBackend)
	assert.Equal(t, 5, cfg.MaxIterations)
	assert.InDelta(t, 80, cfg.Threshold, 1e-9)
	assert.Equal(t, "#####", cfg.Separator)
	assert.Equal(t, "sk-env", cfg.APIKey())
	assert.NoError(t, config.Validate(cfg))
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("PROMPTSMITH_PROVIDER", "anthropic")
	t.Setenv("PROMPTSMITH_MODEL", "claude-3-haiku")
	t.Setenv("PROMPTSMITH_LOG_LEVEL", "debug")
	t.Setenv("PROMPTSMITH_RETRY_INTERVAL", "250ms")
	t.Setenv("PROMPTSMITH_CACHE_BACKEND", "sqlite")
	t.Setenv("ANTHROPIC_API_KEY", "ak")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "claude-3-haiku", cfg.Model)
	assert.Equal(t, utils.LogLevelDebug, cfg.LogLevel)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryInterval)
	assert.Equal(t, config.CacheBackendSQLite, cfg.CacheBackend)
	assert.Equal(t, "ak", cfg.APIKey())
}

func TestLoadConfigBadLogLevel(t *testing.T) {
	t.Setenv("PROMPTSMITH_LOG_LEVEL", "loud")

	_, err := config.LoadConfig()
	assert.Error(t, err)
}

func TestLoadFileOverlay(t *testing.T) {
	t.Setenv("PROMPTSMITH_MODEL", "from-env")
	t.Setenv("TEST_GROQ_KEY", "gk")

	path := filepath.Join(t.TempDir(), "promptsmith.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: groq
temperature: 0
max_iterations: 2
cache_backend: memory
api_keys:
  GROQ: ${TEST_GROQ_KEY}
extra_headers:
  X-Team: prompts
`), 0o644))

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "groq", cfg.Provider)
	assert.Equal(t, "from-env", cfg.Model, "keys absent from the file keep env values")
	assert.Zero(t, cfg.Temperature, "explicit zero in the file wins")
	assert.Equal(t, 2, cfg.MaxIterations)
	assert.Equal(t, "gk", cfg.APIKey())
	assert.Equal(t, "prompts", cfg.ExtraHeaders["X-Team"])
	assert.NoError(t, config.Validate(cfg))
}

func TestLoadFileMissing(t *testing.T) {
	_, err := config.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		opts    []config.ConfigOption
		wantErr bool
	}{
		{
			name: "valid",
			opts: []config.ConfigOption{config.SetAPIKey("sk")},
		},
		{
			name:    "missing api key",
			opts:    nil,
			wantErr: true,
		},
		{
			name: "ollama needs no key",
			opts: []config.ConfigOption{config.SetProvider("ollama")},
		},
		{
			name:    "unknown cache backend",
			opts:    []config.ConfigOption{config.SetAPIKey("sk"), config.SetCache("redis", "x")},
			wantErr: true,
		},
		{
			name: "memory cache without path",
			opts: []config.ConfigOption{config.SetAPIKey("sk"), config.SetCache("memory", "")},
		},
		{
			name:    "file cache without path",
			opts:    []config.ConfigOption{config.SetAPIKey("sk"), config.SetCache("file", "")},
			wantErr: true,
		},
		{
			name:    "temperature out of range",
			opts:    []config.ConfigOption{config.SetAPIKey("sk"), config.SetTemperature(3)},
			wantErr: true,
		},
		{
			name:    "zero retries",
			opts:    []config.ConfigOption{config.SetAPIKey("sk"), config.SetMaxRetries(0)},
			wantErr: true,
		},
		{
			name:    "bad endpoint",
			opts:    []config.ConfigOption{config.SetAPIKey("sk"), config.SetEndpoint("not a url")},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.NewConfig()
			config.ApplyOptions(cfg, tc.opts...)

			err := config.Validate(cfg)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSetAPIKeyFollowsProvider(t *testing.T) {
	cfg := config.NewConfig()
	config.ApplyOptions(cfg,
		config.SetProvider("mistral"),
		config.SetAPIKey("mk"),
		config.SetMaxTokens(0),
		config.SetExtraHeaders(map[string]string{"A": "1"}),
	)

	assert.Equal(t, "mk", cfg.APIKeys["mistral"])
	assert.Equal(t, 1, cfg.MaxTokens)
	assert.Equal(t, "1", cfg.ExtraHeaders["A"])
}
