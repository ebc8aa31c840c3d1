// Package config loads promptsmith settings from the environment, an optional YAML
// file and functional options, in that order of precedence (later wins).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/teilomillet/promptsmith/utils"
)

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendFile   = "file"
	CacheBackendSQLite = "sqlite"
)

type Config struct {
	Provider      string            `env:"PROMPTSMITH_PROVIDER" envDefault:"openai" yaml:"provider" validate:"required"`
	Model         string            `env:"PROMPTSMITH_MODEL" envDefault:"gpt-3.5-turbo" yaml:"model" validate:"required"`
	Endpoint      string            `env:"PROMPTSMITH_ENDPOINT" yaml:"endpoint" validate:"omitempty,url"`
	Temperature   float64           `env:"PROMPTSMITH_TEMPERATURE" envDefault:"0.1" yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens     int               `env:"PROMPTSMITH_MAX_TOKENS" envDefault:"1024" yaml:"max_tokens" validate:"gte=1"`
	Timeout       time.Duration     `env:"PROMPTSMITH_TIMEOUT" envDefault:"60s" yaml:"timeout" validate:"gte=0"`
	MaxRetries    int               `env:"PROMPTSMITH_MAX_RETRIES" envDefault:"3" yaml:"max_retries" validate:"gte=1"`
	RetryInterval time.Duration     `env:"PROMPTSMITH_RETRY_INTERVAL" envDefault:"5s" yaml:"retry_interval" validate:"gte=0"`
	APIKeys       map[string]string `yaml:"api_keys" validate:"apikey"`
	ExtraHeaders  map[string]string `yaml:"extra_headers"`
	LogLevel      utils.LogLevel    `env:"PROMPTSMITH_LOG_LEVEL" envDefault:"WARN" yaml:"log_level"`
	CountTokens   bool              `env:"PROMPTSMITH_COUNT_TOKENS" envDefault:"false" yaml:"count_tokens"`

	CacheBackend string `env:"PROMPTSMITH_CACHE_BACKEND" envDefault:"file" yaml:"cache_backend" validate:"oneof=memory file sqlite"`
	CachePath    string `env:"PROMPTSMITH_CACHE_PATH" envDefault:"./cache.gob" yaml:"cache_path" validate:"required_unless=CacheBackend memory"`

	MaxIterations int     `env:"PROMPTSMITH_MAX_ITERATIONS" envDefault:"5" yaml:"max_iterations" validate:"gte=1"`
	Threshold     float64 `env:"PROMPTSMITH_THRESHOLD" envDefault:"80" yaml:"threshold"`
	Separator     string  `env:"PROMPTSMITH_SEPARATOR" envDefault:"#####" yaml:"separator" validate:"required"`
	RubricPath    string  `env:"PROMPTSMITH_RUBRIC" yaml:"rubric_path"`
	DebugDir      string  `env:"PROMPTSMITH_DEBUG_DIR" yaml:"debug_dir"`
	MetricsAddr   string  `env:"PROMPTSMITH_METRICS_ADDR" yaml:"metrics_addr"`
}

// Providers that run without an API key.
var keylessProviders = map[string]bool{
	"ollama": true,
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	if err := validate.RegisterValidation("apikey", validateAPIKey); err != nil {
		panic(fmt.Sprintf("failed to register API key validator: %v", err))
	}
}

// validateAPIKey checks that the selected provider has a non-empty key, unless it
// is a local provider.
func validateAPIKey(fl validator.FieldLevel) bool {
	provider := fl.Parent().FieldByName("Provider").String()
	if keylessProviders[provider] {
		return true
	}
	apiKeys, ok := fl.Field().Interface().(map[string]string)
	if !ok {
		return false
	}
	return strings.TrimSpace(apiKeys[provider]) != ""
}

// Validate checks the struct tags on cfg.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadConfig reads the environment. API keys are discovered from every
// <PROVIDER>_API_KEY variable.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		APIKeys:      make(map[string]string),
		ExtraHeaders: make(map[string]string),
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	loadAPIKeys(cfg)
	return cfg, nil
}

// LoadFile reads the environment, then overlays the YAML file at path.
// ${VAR} references inside the file are expanded before parsing.
func LoadFile(path string) (*Config, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	expanded := os.ExpandEnv(string(data))

	var overlay Config
	if err := yaml.Unmarshal([]byte(expanded), &overlay); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	merge(cfg, &overlay, []byte(expanded))
	return cfg, nil
}

// merge copies the keys present in the YAML document from overlay onto cfg.
// Zero values written explicitly in the file still win, which is why the raw
// document is consulted instead of comparing against zero values.
func merge(cfg, overlay *Config, raw []byte) {
	var present map[string]any
	if err := yaml.Unmarshal(raw, &present); err != nil {
		return
	}
	has := func(key string) bool {
		_, ok := present[key]
		return ok
	}

	if has("provider") {
		cfg.Provider = overlay.Provider
	}
	if has("model") {
		cfg.Model = overlay.Model
	}
	if has("endpoint") {
		cfg.Endpoint = overlay.Endpoint
	}
	if has("temperature") {
		cfg.Temperature = overlay.Temperature
	}
	if has("max_tokens") {
		cfg.MaxTokens = overlay.MaxTokens
	}
	if has("timeout") {
		cfg.Timeout = overlay.Timeout
	}
	if has("max_retries") {
		cfg.MaxRetries = overlay.MaxRetries
	}
	if has("retry_interval") {
		cfg.RetryInterval = overlay.RetryInterval
	}
	for k, v := range overlay.APIKeys {
		cfg.APIKeys[strings.ToLower(k)] = v
	}
	for k, v := range overlay.ExtraHeaders {
		cfg.ExtraHeaders[k] = v
	}
	if has("log_level") {
		cfg.LogLevel = overlay.LogLevel
	}
	if has("count_tokens") {
		cfg.CountTokens = overlay.CountTokens
	}
	if has("cache_backend") {
		cfg.CacheBackend = overlay.CacheBackend
	}
	if has("cache_path") {
		cfg.CachePath = overlay.CachePath
	}
	if has("max_iterations") {
		cfg.MaxIterations = overlay.MaxIterations
	}
	if has("threshold") {
		cfg.Threshold = overlay.Threshold
	}
	if has("separator") {
		cfg.Separator = overlay.Separator
	}
	if has("rubric_path") {
		cfg.RubricPath = overlay.RubricPath
	}
	if has("debug_dir") {
		cfg.DebugDir = overlay.DebugDir
	}
	if has("metrics_addr") {
		cfg.MetricsAddr = overlay.MetricsAddr
	}
}

func loadAPIKeys(cfg *Config) {
	for _, envVar := range os.Environ() {
		key, value, found := strings.Cut(envVar, "=")
		if found && strings.HasSuffix(strings.ToUpper(key), "_API_KEY") {
			provider := strings.TrimSuffix(strings.ToUpper(key), "_API_KEY")
			cfg.APIKeys[strings.ToLower(provider)] = value
		}
	}
}

// APIKey returns the key for the configured provider.
func (c *Config) APIKey() string {
	return c.APIKeys[c.Provider]
}

type ConfigOption func(*Config)

// NewConfig returns the defaults without reading the environment.
func NewConfig() *Config {
	return &Config{
		Provider:      "openai",
		Model:         "gpt-3.5-turbo",
		Temperature:   0.1,
		MaxTokens:     1024,
		Timeout:       60 * time.Second,
		MaxRetries:    3,
		RetryInterval: 5 * time.Second,
		APIKeys:       make(map[string]string),
		ExtraHeaders:  make(map[string]string),
		LogLevel:      utils.LogLevelWarn,
		CacheBackend:  CacheBackendFile,
		CachePath:     "./cache.gob",
		MaxIterations: 5,
		Threshold:     80,
		Separator:     "#####",
	}
}

func SetProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

func SetModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

func SetEndpoint(endpoint string) ConfigOption {
	return func(c *Config) {
		c.Endpoint = endpoint
	}
}

func SetTemperature(temperature float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = temperature
	}
}

func SetMaxTokens(maxTokens int) ConfigOption {
	return func(c *Config) {
		if maxTokens < 1 {
			maxTokens = 1
		}
		c.MaxTokens = maxTokens
	}
}

func SetTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// SetAPIKey stores the key for the provider selected at the time the option runs.
func SetAPIKey(apiKey string) ConfigOption {
	return func(c *Config) {
		if c.APIKeys == nil {
			c.APIKeys = make(map[string]string)
		}
		c.APIKeys[c.Provider] = apiKey
	}
}

func SetMaxRetries(maxRetries int) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = maxRetries
	}
}

func SetRetryInterval(interval time.Duration) ConfigOption {
	return func(c *Config) {
		c.RetryInterval = interval
	}
}

func SetLogLevel(level utils.LogLevel) ConfigOption {
	return func(c *Config) {
		c.LogLevel = level
	}
}

func SetExtraHeaders(headers map[string]string) ConfigOption {
	return func(c *Config) {
		if c.ExtraHeaders == nil {
			c.ExtraHeaders = make(map[string]string)
		}
		for k, v := range headers {
			c.ExtraHeaders[k] = v
		}
	}
}

func SetCountTokens(enabled bool) ConfigOption {
	return func(c *Config) {
		c.CountTokens = enabled
	}
}

func SetCache(backend, path string) ConfigOption {
	return func(c *Config) {
		c.CacheBackend = backend
		c.CachePath = path
	}
}

func SetMaxIterations(n int) ConfigOption {
	return func(c *Config) {
		c.MaxIterations = n
	}
}

func SetThreshold(threshold float64) ConfigOption {
	return func(c *Config) {
		c.Threshold = threshold
	}
}

func SetSeparator(separator string) ConfigOption {
	return func(c *Config) {
		c.Separator = separator
	}
}

func SetRubricPath(path string) ConfigOption {
	return func(c *Config) {
		c.RubricPath = path
	}
}

func SetDebugDir(dir string) ConfigOption {
	return func(c *Config) {
		c.DebugDir = dir
	}
}

func SetMetricsAddr(addr string) ConfigOption {
	return func(c *Config) {
		c.MetricsAddr = addr
	}
}

func ApplyOptions(cfg *Config, options ...ConfigOption) {
	for _, option := range options {
		option(cfg)
	}
}
