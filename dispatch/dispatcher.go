package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/teilomillet/promptsmith/metrics"
	"github.com/teilomillet/promptsmith/types"
	"github.com/teilomillet/promptsmith/utils"
)

// MinWorkers is the smallest pool a dispatch runs with.
const MinWorkers = 5

// Sleeper waits d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Dispatcher runs batches of conversations on a worker pool. Each conversation
// is retried by resubmitting it to the pool, and the first conversation that
// runs out of attempts cancels the rest of the batch.
type Dispatcher struct {
	runner  Runner
	logger  utils.Logger
	sleep   Sleeper
	metrics *metrics.Metrics
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSleeper replaces the wait between attempts.
func WithSleeper(s Sleeper) Option {
	return func(d *Dispatcher) {
		d.sleep = s
	}
}

// WithMetrics records every attempt in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func NewDispatcher(runner Runner, logger utils.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	d := &Dispatcher{runner: runner, logger: logger, sleep: sleepContext}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type outcome struct {
	text string
	err  error
}

// Dispatch runs every conversation concurrently and returns one reply per
// conversation, in input order. A conversation gets up to maxRetries attempts
// with retryInterval between them; when one exhausts its attempts the batch is
// cancelled and that error returned.
func (d *Dispatcher) Dispatch(ctx context.Context, convs []types.Conversation, temperature float64, model string, maxRetries int, retryInterval time.Duration) ([]string, error) {
	if len(convs) == 0 {
		return []string{}, nil
	}
	if maxRetries < 1 {
		maxRetries = 1
	}

	// One task in flight per conversation, so submission never blocks.
	pool, err := ants.NewPool(max(MinWorkers, len(convs)))
	if err != nil {
		return nil, fmt.Errorf("create dispatch pool: %w", err)
	}
	defer pool.Release()

	d.logger.Debug("Dispatching batch", "conversations", len(convs), "workers", pool.Cap(), "model", model)

	results := make([]string, len(convs))
	g, gctx := errgroup.WithContext(ctx)
	for i, conv := range convs {
		i, conv := i, conv
		g.Go(func() error {
			text, err := d.runWithRetry(gctx, pool, i, conv, temperature, model, maxRetries, retryInterval)
			if err != nil {
				return err
			}
			results[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (d *Dispatcher) runWithRetry(ctx context.Context, pool *ants.Pool, idx int, conv types.Conversation, temperature float64, model string, maxRetries int, retryInterval time.Duration) (string, error) {
	for attempt := 1; ; attempt++ {
		text, err := d.submit(ctx, pool, conv, temperature, model)
		d.metrics.RecordDispatchAttempt(err != nil)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		if attempt >= maxRetries {
			d.logger.Error("Request failed, giving up", "index", idx, "attempt", attempt, "max_retries", maxRetries, "error", err)
			return "", fmt.Errorf("conversation %d failed after %d attempts: %w", idx, attempt, err)
		}

		d.logger.Warn("Request failed, retrying", "index", idx, "attempt", attempt, "max_retries", maxRetries, "retry_interval", retryInterval, "error", err)
		if err := d.sleep(ctx, retryInterval); err != nil {
			return "", err
		}
	}
}

// submit runs one attempt on the pool and waits for it.
func (d *Dispatcher) submit(ctx context.Context, pool *ants.Pool, conv types.Conversation, temperature float64, model string) (string, error) {
	done := make(chan outcome, 1)
	err := pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("request panicked: %v", r)}
			}
		}()
		text, err := d.runner.Execute(ctx, conv, temperature, model)
		done <- outcome{text: text, err: err}
	})
	if err != nil {
		return "", fmt.Errorf("submit request: %w", err)
	}

	select {
	case o := <-done:
		return o.text, o.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
