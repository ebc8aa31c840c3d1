// Package providers implements the wire formats of the chat APIs promptsmith can call.
// A Provider only builds request bodies and parses response bodies; the HTTP
// round trip is done by the llm package.
package providers

import (
	"github.com/teilomillet/promptsmith/config"
	"github.com/teilomillet/promptsmith/utils"
)

// Provider defines the interface that all LLM providers must implement.
type Provider interface {
	// Core identification and configuration
	Name() string
	Endpoint() string
	SetEndpoint(endpoint string)
	Headers() map[string]string
	SetExtraHeaders(extraHeaders map[string]string)
	SetDefaultOptions(cfg *config.Config)
	SetOption(key string, value any)
	SetLogger(logger utils.Logger)

	// PrepareRequest encodes a chat request. Options override the defaults set
	// through SetOption, and the request's own model and temperature override both.
	PrepareRequest(req *Request, options map[string]any) ([]byte, error)

	// ParseResponse decodes a successful (2xx) response body.
	ParseResponse(body []byte) (*Response, error)
}

// ProviderConfig holds the static description of a provider.
type ProviderConfig struct {
	// Name is the provider identifier
	Name string

	// Endpoint is the API endpoint URL
	Endpoint string

	// AuthHeader is the header key used for authentication
	AuthHeader string

	// AuthPrefix is the prefix to use before the API key (e.g., "Bearer ")
	AuthPrefix string

	// RequiredHeaders are additional headers always needed
	RequiredHeaders map[string]string
}

// ProviderConstructor defines a function type for creating new provider instances.
type ProviderConstructor func(apiKey, model string, extraHeaders map[string]string) Provider

func copyHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[k] = v
	}
	return out
}
