package providers

import (
	"fmt"
	"sort"
	"sync"
)

// ProviderRegistry manages the registration and retrieval of LLM providers.
// It provides thread-safe access to provider constructors and supports
// dynamic provider registration.
type ProviderRegistry struct {
	providers map[string]ProviderConstructor
	configs   map[string]ProviderConfig
	mutex     sync.RWMutex
}

// NewProviderRegistry creates a new provider registry with the specified providers.
// If no providers are specified, all known providers are registered by default.
func NewProviderRegistry(providerNames ...string) *ProviderRegistry {
	registry := &ProviderRegistry{
		providers: make(map[string]ProviderConstructor),
		configs:   make(map[string]ProviderConfig),
	}

	knownProviders := getKnownProviders()
	for name, cfg := range getStandardConfigs() {
		registry.configs[name] = cfg
	}

	if len(providerNames) == 0 {
		for name, constructor := range knownProviders {
			registry.providers[name] = constructor
		}
	} else {
		for _, name := range providerNames {
			if constructor, ok := knownProviders[name]; ok {
				registry.providers[name] = constructor
			}
		}
	}

	return registry
}

// openAICompatible returns a constructor for an OpenAI-format endpoint.
func openAICompatible(name string) ProviderConstructor {
	endpoint := getStandardConfigs()[name].Endpoint
	return func(apiKey, model string, extraHeaders map[string]string) Provider {
		return NewOpenAICompatibleProvider(name, endpoint, apiKey, model, extraHeaders)
	}
}

func getKnownProviders() map[string]ProviderConstructor {
	return map[string]ProviderConstructor{
		"openai": func(apiKey, model string, extraHeaders map[string]string) Provider {
			return NewOpenAIProvider(apiKey, model, extraHeaders)
		},
		"anthropic": func(apiKey, model string, extraHeaders map[string]string) Provider {
			return NewAnthropicProvider(apiKey, model, extraHeaders)
		},
		"ollama": func(apiKey, model string, extraHeaders map[string]string) Provider {
			return NewOllamaProvider(apiKey, model, extraHeaders)
		},
		"groq":       openAICompatible("groq"),
		"deepseek":   openAICompatible("deepseek"),
		"mistral":    openAICompatible("mistral"),
		"openrouter": openAICompatible("openrouter"),
	}
}

func getStandardConfigs() map[string]ProviderConfig {
	bearer := func(name, endpoint string) ProviderConfig {
		return ProviderConfig{
			Name:            name,
			Endpoint:        endpoint,
			AuthHeader:      "Authorization",
			AuthPrefix:      "Bearer ",
			RequiredHeaders: map[string]string{"Content-Type": "application/json"},
		}
	}

	return map[string]ProviderConfig{
		"openai":     bearer("openai", "https://api.openai.com/v1/chat/completions"),
		"groq":       bearer("groq", "https://api.groq.com/openai/v1/chat/completions"),
		"deepseek":   bearer("deepseek", "https://api.deepseek.com/chat/completions"),
		"mistral":    bearer("mistral", "https://api.mistral.ai/v1/chat/completions"),
		"openrouter": bearer("openrouter", "https://openrouter.ai/api/v1/chat/completions"),
		"anthropic": {
			Name:       "anthropic",
			Endpoint:   "https://api.anthropic.com/v1/messages",
			AuthHeader: "x-api-key",
			RequiredHeaders: map[string]string{
				"Content-Type":      "application/json",
				"anthropic-version": "2023-06-01",
			},
		},
		"ollama": {
			Name:            "ollama",
			Endpoint:        "http://localhost:11434/api/chat",
			RequiredHeaders: map[string]string{"Content-Type": "application/json"},
		},
	}
}

// GetProviderConfig returns the configuration for a named provider
func (r *ProviderRegistry) GetProviderConfig(name string) (ProviderConfig, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	cfg, exists := r.configs[name]
	return cfg, exists
}

// RegisterProviderConfig registers a new provider configuration
func (r *ProviderRegistry) RegisterProviderConfig(name string, cfg ProviderConfig) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.configs[name] = cfg
}

// Register adds a new provider constructor to the registry.
func (r *ProviderRegistry) Register(name string, constructor ProviderConstructor) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.providers[name] = constructor
}

// Names lists the registered providers in sorted order.
func (r *ProviderRegistry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get retrieves a provider instance by name.
// It creates a new provider instance using the registered constructor.
func (r *ProviderRegistry) Get(name, apiKey, model string, extraHeaders map[string]string) (Provider, error) {
	r.mutex.RLock()
	constructor, exists := r.providers[name]
	r.mutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}

	return constructor(apiKey, model, extraHeaders), nil
}

// IsKnownProvider returns true if the default registry recognizes the given provider name.
func IsKnownProvider(name string) bool {
	_, ok := NewProviderRegistry().GetProviderConfig(name)
	return ok
}
