package promptsmith

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/teilomillet/promptsmith/cache"
	"github.com/teilomillet/promptsmith/config"
	"github.com/teilomillet/promptsmith/dispatch"
	"github.com/teilomillet/promptsmith/llm"
	"github.com/teilomillet/promptsmith/metrics"
	"github.com/teilomillet/promptsmith/optimizer"
	"github.com/teilomillet/promptsmith/providers"
	"github.com/teilomillet/promptsmith/rubric"
	"github.com/teilomillet/promptsmith/types"
	"github.com/teilomillet/promptsmith/utils"
)

// Engine wires the provider client, the reply cache, the executor and the
// dispatcher for one configuration.
type Engine struct {
	cfg        *config.Config
	logger     utils.Logger
	client     *llm.Client
	cache      *cache.Cache
	executor   *dispatch.Executor
	dispatcher *dispatch.Dispatcher
	metrics    *metrics.Metrics
	rubric     *rubric.Rubric
}

type engineOptions struct {
	logger     utils.Logger
	metrics    *metrics.Metrics
	registry   *providers.ProviderRegistry
	httpClient *http.Client
	store      cache.Store
	sleeper    dispatch.Sleeper
}

// Option customizes an Engine beyond what Config covers.
type Option func(*engineOptions)

func WithLogger(logger utils.Logger) Option {
	return func(o *engineOptions) { o.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *engineOptions) { o.metrics = m }
}

func WithRegistry(registry *providers.ProviderRegistry) Option {
	return func(o *engineOptions) { o.registry = registry }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *engineOptions) { o.httpClient = c }
}

// WithStore replaces the store selected by Config.CacheBackend.
func WithStore(store cache.Store) Option {
	return func(o *engineOptions) { o.store = store }
}

// WithSleeper replaces the wait between dispatcher attempts.
func WithSleeper(s dispatch.Sleeper) Option {
	return func(o *engineOptions) { o.sleeper = s }
}

// New validates cfg and builds an Engine.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	o := &engineOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = utils.NewLogger(cfg.LogLevel)
	}
	if o.metrics == nil {
		o.metrics = metrics.NewMetrics()
	}

	r := rubric.Default()
	if cfg.RubricPath != "" {
		loaded, err := rubric.Load(cfg.RubricPath)
		if err != nil {
			return nil, err
		}
		r = loaded
	}

	clientOpts := []llm.ClientOption{llm.WithMetrics(o.metrics)}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, llm.WithHTTPClient(o.httpClient))
	}
	client, err := llm.NewClient(cfg, o.logger, o.registry, clientOpts...)
	if err != nil {
		o.logger.Error("Failed to create LLM client", "error", err)
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	store := o.store
	if store == nil {
		store, err = cache.NewStore(cfg.CacheBackend, cfg.CachePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
	}
	replyCache := cache.New(store, o.logger, cache.WithMetrics(o.metrics))

	executor := dispatch.NewExecutor(client, replyCache, o.logger)
	dispatchOpts := []dispatch.Option{dispatch.WithMetrics(o.metrics)}
	if o.sleeper != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithSleeper(o.sleeper))
	}

	o.logger.Debug("Engine ready", "provider", cfg.Provider, "model", cfg.Model,
		"cache_backend", cfg.CacheBackend, "cache_path", cfg.CachePath)

	return &Engine{
		cfg:        cfg,
		logger:     o.logger,
		client:     client,
		cache:      replyCache,
		executor:   executor,
		dispatcher: dispatch.NewDispatcher(executor, o.logger, dispatchOpts...),
		metrics:    o.metrics,
		rubric:     r,
	}, nil
}

// NewFromEnv loads the configuration from the environment, applies opts and
// builds an Engine.
func NewFromEnv(opts ...ConfigOption) (*Engine, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	config.ApplyOptions(cfg, opts...)
	return New(cfg)
}

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config { return e.cfg }

// Metrics returns the collectors the engine records into.
func (e *Engine) Metrics() *metrics.Metrics { return e.metrics }

// Rubric returns the rubric runs use when none is given.
func (e *Engine) Rubric() *rubric.Rubric { return e.rubric.Clone() }

// Execute sends one conversation through the cache.
func (e *Engine) Execute(ctx context.Context, conv types.Conversation, temperature float64, model string) (string, error) {
	return e.executor.Execute(ctx, conv, temperature, model)
}

// Dispatch runs conversations concurrently with the configured retries.
func (e *Engine) Dispatch(ctx context.Context, convs []types.Conversation, temperature float64, model string) ([]string, error) {
	return e.dispatcher.Dispatch(ctx, convs, temperature, model, e.cfg.MaxRetries, e.cfg.RetryInterval)
}

// RefineOptions override per run what the engine config sets.
type RefineOptions struct {
	Data   string
	Rubric *rubric.Rubric
}

// Refine runs the refinement loop on prompt.
func (e *Engine) Refine(ctx context.Context, prompt string, ro RefineOptions, opts ...optimizer.OptimizerOption) (*optimizer.Result, error) {
	oc := optimizer.Config{
		Prompt:        prompt,
		Data:          ro.Data,
		Rubric:        ro.Rubric,
		Model:         e.cfg.Model,
		Temperature:   e.cfg.Temperature,
		MaxIterations: e.cfg.MaxIterations,
		Threshold:     e.cfg.Threshold,
		Separator:     e.cfg.Separator,
		MaxRetries:    e.cfg.MaxRetries,
		RetryInterval: e.cfg.RetryInterval,
	}
	if oc.Rubric == nil {
		oc.Rubric = e.Rubric()
	}

	base := []optimizer.OptimizerOption{
		optimizer.WithLogger(e.logger),
		optimizer.WithMetrics(e.metrics),
	}
	if e.cfg.DebugDir != "" {
		base = append(base, optimizer.WithDebugManager(utils.NewDebugManager(e.logger, utils.DebugOptions{
			Enabled:      true,
			OutputDir:    e.cfg.DebugDir,
			SaveToFile:   true,
			LogPrompts:   true,
			LogResponses: true,
		})))
	}

	start := time.Now()
	result, err := optimizer.Run(ctx, e.executor, e.dispatcher, oc, append(base, opts...)...)
	if err != nil {
		e.logger.Error("Refinement failed", "error", err)
		return result, err
	}
	e.logger.Info("Refinement finished", "run_id", result.RunID, "iterations", result.Iterations,
		"goal_met", result.GoalMet, "best_score", result.BestScore, "elapsed", time.Since(start))
	return result, nil
}

// CacheStats reports the reply cache size and hit counters.
func (e *Engine) CacheStats(ctx context.Context) (cache.Stats, error) {
	return e.cache.Stats(ctx)
}

// ClearCache removes every cached reply.
func (e *Engine) ClearCache(ctx context.Context) error {
	return e.cache.Clear(ctx)
}

// Close releases the cache and flushes the logger.
func (e *Engine) Close() error {
	err := e.cache.Close()
	if s, ok := e.logger.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
	return err
}
