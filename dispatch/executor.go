// Package dispatch runs chat requests through the reply cache, one at a time
// or as a concurrent batch with retries.
package dispatch

import (
	"context"
	"errors"

	"github.com/teilomillet/promptsmith/cache"
	"github.com/teilomillet/promptsmith/llm"
	"github.com/teilomillet/promptsmith/types"
	"github.com/teilomillet/promptsmith/utils"
)

// Runner executes a single conversation. *Executor is the production Runner.
type Runner interface {
	Execute(ctx context.Context, conv types.Conversation, temperature float64, model string) (string, error)
}

// Executor issues one chat request, consulting the cache first. A nil cache
// sends every request.
type Executor struct {
	chatter llm.Chatter
	cache   *cache.Cache
	logger  utils.Logger
}

func NewExecutor(chatter llm.Chatter, c *cache.Cache, logger utils.Logger) *Executor {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Executor{chatter: chatter, cache: c, logger: logger}
}

// Execute returns the reply for conv. On a cache miss exactly one external call
// is made; its failure is returned as an *llm.LLMError.
func (e *Executor) Execute(ctx context.Context, conv types.Conversation, temperature float64, model string) (string, error) {
	req := types.Request{Conversation: conv, Temperature: temperature, Model: model}
	call := func(ctx context.Context) (string, error) {
		return e.chatter.Chat(ctx, req)
	}

	var (
		result string
		err    error
	)
	if e.cache != nil {
		result, err = e.cache.GetOrCompute(ctx, req, call)
	} else {
		result, err = call(ctx)
	}
	if err != nil {
		reqErr := asRequestError(err)
		e.logger.Error("API request failed", append(reqErr.LoggableFields(), "model", model)...)
		return "", reqErr
	}
	return result, nil
}

func asRequestError(err error) *llm.LLMError {
	var llmErr *llm.LLMError
	if errors.As(err, &llmErr) {
		return llmErr
	}
	return llm.NewLLMError(llm.ErrorTypeRequest, "request failed", err)
}
