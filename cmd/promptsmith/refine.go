package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teilomillet/promptsmith"
	"github.com/teilomillet/promptsmith/config"
	"github.com/teilomillet/promptsmith/optimizer"
	"github.com/teilomillet/promptsmith/utils"
)

type refineFlags struct {
	prompt        string
	promptFile    string
	data          string
	dataFile      string
	rubricPath    string
	provider      string
	model         string
	apiKey        string
	temperature   float64
	maxIterations int
	threshold     float64
	maxRetries    int
	retryInterval time.Duration
	cacheBackend  string
	cachePath     string
	debugDir      string
	metricsAddr   string
	logLevel      string
	output        string
}

func newRefineCmd() *cobra.Command {
	f := &refineFlags{}

	cmd := &cobra.Command{
		Use:   "refine",
		Short: "Iteratively score and rewrite a prompt until it meets the threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefine(cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.prompt, "prompt", "p", "", "Prompt to refine")
	flags.StringVar(&f.promptFile, "prompt-file", "", "Read the prompt from a file (- for stdin)")
	flags.StringVarP(&f.data, "data", "d", "", "Data the prompt is applied to")
	flags.StringVar(&f.dataFile, "data-file", "", "Read the data from a file")
	flags.StringVar(&f.rubricPath, "rubric", "", "Rubric JSON file (default rubric when empty)")
	flags.StringVar(&f.provider, "provider", "", "LLM provider (openai, anthropic, ollama, groq, deepseek, mistral, openrouter)")
	flags.StringVar(&f.model, "model", "", "Model name")
	flags.StringVar(&f.apiKey, "api-key", "", "API key for the selected provider")
	flags.Float64Var(&f.temperature, "temperature", 0, "Sampling temperature")
	flags.IntVar(&f.maxIterations, "max-iterations", 0, "Maximum refinement iterations")
	flags.Float64Var(&f.threshold, "threshold", 0, "Rubric total that ends the run")
	flags.IntVar(&f.maxRetries, "max-retries", 0, "Attempts per LLM request")
	flags.DurationVar(&f.retryInterval, "retry-interval", 0, "Delay between attempts")
	flags.StringVar(&f.cacheBackend, "cache-backend", "", "Reply cache backend (memory, file, sqlite)")
	flags.StringVar(&f.cachePath, "cache-path", "", "Reply cache location")
	flags.StringVar(&f.debugDir, "debug-dir", "", "Write prompts, replies and iterations to this directory")
	flags.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	flags.StringVar(&f.logLevel, "log-level", "", "Log level (off, error, warn, info, debug)")
	flags.StringVarP(&f.output, "output", "o", "text", "Output format (text, json)")
	cmd.MarkFlagsMutuallyExclusive("prompt", "prompt-file")
	cmd.MarkFlagsMutuallyExclusive("data", "data-file")

	return cmd
}

// overrides turns the flags the user actually set into config options.
func (f *refineFlags) overrides(cmd *cobra.Command) ([]config.ConfigOption, error) {
	changed := cmd.Flags().Changed
	var opts []config.ConfigOption

	if changed("provider") {
		opts = append(opts, config.SetProvider(f.provider))
	}
	if changed("model") {
		opts = append(opts, config.SetModel(f.model))
	}
	// after provider so the key lands under the selected provider
	if changed("api-key") {
		opts = append(opts, config.SetAPIKey(f.apiKey))
	}
	if changed("temperature") {
		opts = append(opts, config.SetTemperature(f.temperature))
	}
	if changed("max-iterations") {
		opts = append(opts, config.SetMaxIterations(f.maxIterations))
	}
	if changed("threshold") {
		opts = append(opts, config.SetThreshold(f.threshold))
	}
	if changed("max-retries") {
		opts = append(opts, config.SetMaxRetries(f.maxRetries))
	}
	if changed("retry-interval") {
		opts = append(opts, config.SetRetryInterval(f.retryInterval))
	}
	if changed("rubric") {
		opts = append(opts, config.SetRubricPath(f.rubricPath))
	}
	if changed("debug-dir") {
		opts = append(opts, config.SetDebugDir(f.debugDir))
	}
	if changed("metrics-addr") {
		opts = append(opts, config.SetMetricsAddr(f.metricsAddr))
	}
	if changed("log-level") {
		var level utils.LogLevel
		if err := level.UnmarshalText([]byte(f.logLevel)); err != nil {
			return nil, err
		}
		opts = append(opts, config.SetLogLevel(level))
	}
	if changed("cache-backend") || changed("cache-path") {
		backend, path := f.cacheBackend, f.cachePath
		opts = append(opts, func(c *config.Config) {
			if backend == "" {
				backend = c.CacheBackend
			}
			if path == "" {
				path = c.CachePath
			}
			config.SetCache(backend, path)(c)
		})
	}
	return opts, nil
}

func readInput(value, file string, stdin io.Reader) (string, error) {
	switch file {
	case "":
		return value, nil
	case "-":
		raw, err := io.ReadAll(stdin)
		return string(raw), err
	default:
		raw, err := os.ReadFile(file)
		return string(raw), err
	}
}

func runRefine(cmd *cobra.Command, f *refineFlags) error {
	if f.output != "text" && f.output != "json" {
		return fmt.Errorf("unknown output format %q", f.output)
	}

	if f.promptFile == "-" && f.dataFile == "-" {
		return errors.New("--prompt-file and --data-file cannot both read stdin")
	}

	prompt, err := readInput(f.prompt, f.promptFile, cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("read prompt: %w", err)
	}
	if prompt == "" {
		return errors.New("a prompt is required (--prompt or --prompt-file)")
	}
	data, err := readInput(f.data, f.dataFile, cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("read data: %w", err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := f.overrides(cmd)
	if err != nil {
		return err
	}
	config.ApplyOptions(cfg, opts...)

	engine, err := promptsmith.New(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		shutdown := serveMetrics(cfg.MetricsAddr, engine)
		defer shutdown()
	}

	out := cmd.OutOrStdout()
	progress := optimizer.WithIterationCallback(func(iteration int, rec optimizer.Record) {
		if f.output == "text" {
			fmt.Fprintf(cmd.ErrOrStderr(), "iteration %d: score %g\n", iteration, rec.Score)
		}
	})

	result, err := engine.Refine(ctx, prompt, promptsmith.RefineOptions{Data: data}, progress)
	if err != nil && result == nil {
		return err
	}

	if f.output == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(result); encErr != nil {
			return encErr
		}
		return err
	}

	fmt.Fprintf(out, "run:        %s\n", result.RunID)
	fmt.Fprintf(out, "iterations: %d\n", result.Iterations)
	fmt.Fprintf(out, "goal met:   %t\n", result.GoalMet)
	fmt.Fprintf(out, "best score: %g\n\n", result.BestScore)
	fmt.Fprintln(out, result.FinalPrompt)
	return err
}

// serveMetrics exposes the engine's collectors until the returned func is called.
func serveMetrics(addr string, engine *promptsmith.Engine) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", engine.Metrics().Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
