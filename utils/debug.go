package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// DebugOptions contains configuration for debug output.
type DebugOptions struct {
	Enabled      bool
	OutputDir    string
	SaveToFile   bool
	LogPrompts   bool
	LogResponses bool
}

// DebugManager mirrors prompts, responses and per-iteration state of a refinement
// run to the logger and, optionally, to files under OutputDir.
type DebugManager struct {
	options   DebugOptions
	logger    Logger
	outputDir string
	now       func() time.Time
	seq       atomic.Int64
}

func NewDebugManager(logger Logger, options DebugOptions) *DebugManager {
	outputDir := options.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(".", "debug_output")
	}
	if logger == nil {
		logger = NewNopLogger()
	}

	dm := &DebugManager{
		options:   options,
		logger:    logger,
		outputDir: outputDir,
		now:       time.Now,
	}

	if options.SaveToFile && options.Enabled {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			logger.Warn("Failed to create debug output directory", "dir", outputDir, "error", err)
		}
	}
	return dm
}

func (dm *DebugManager) IsEnabled() bool {
	return dm != nil && dm.options.Enabled
}

// LogPrompt logs a prompt if prompt logging is enabled.
func (dm *DebugManager) LogPrompt(name, prompt string) {
	if !dm.IsEnabled() || !dm.options.LogPrompts {
		return
	}
	dm.logger.Debug("Prompt", "name", name, "prompt", prompt)
	if dm.options.SaveToFile {
		dm.saveToFile(fmt.Sprintf("prompt_%s_%s.txt", name, dm.stamp()), prompt)
	}
}

// LogResponse logs a response if response logging is enabled.
func (dm *DebugManager) LogResponse(name, response string) {
	if !dm.IsEnabled() || !dm.options.LogResponses {
		return
	}
	dm.logger.Debug("Response", "name", name, "response", response)
	if dm.options.SaveToFile {
		dm.saveToFile(fmt.Sprintf("response_%s_%s.txt", name, dm.stamp()), response)
	}
}

// SaveIteration writes data as indented JSON to iteration_<n>_<stamp>.json.
func (dm *DebugManager) SaveIteration(iteration int, data any) {
	if !dm.IsEnabled() || !dm.options.SaveToFile {
		return
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		dm.logger.Warn("Failed to encode iteration", "iteration", iteration, "error", err)
		return
	}
	dm.saveToFile(fmt.Sprintf("iteration_%d_%s.json", iteration, dm.stamp()), string(raw))
}

// stamp is a timestamp plus a sequence number so files written within the same
// second do not overwrite each other.
func (dm *DebugManager) stamp() string {
	return fmt.Sprintf("%s_%03d", dm.now().Format("20060102_150405"), dm.seq.Add(1))
}

func (dm *DebugManager) saveToFile(filename, content string) {
	path := filepath.Join(dm.outputDir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		dm.logger.Error("Failed to write debug output", "error", err, "file", path)
	}
}
