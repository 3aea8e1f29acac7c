package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kilianp07/storageopt/pkg/export"
)

// RunnerConfig controls batch execution of scenarios.
type RunnerConfig struct {
	// Parallelism caps the scenarios optimised at once.
	Parallelism int      `json:"parallelism"`
	OutputDir   string   `json:"output_dir"`
	Formats     []string `json:"formats"`
}

func (c *RunnerConfig) SetDefaults() {
	if c.Parallelism <= 0 {
		c.Parallelism = runtime.GOMAXPROCS(0)
	}
	if c.OutputDir == "" {
		c.OutputDir = "out"
	}
	if len(c.Formats) == 0 {
		c.Formats = []string{string(export.CSV), string(export.JSON)}
	}
}

func (c RunnerConfig) Validate() error {
	if c.Parallelism < 1 {
		return fmt.Errorf("runner: parallelism must be at least 1")
	}
	if _, err := export.ParseFormats(c.Formats); err != nil {
		return fmt.Errorf("runner: %w", err)
	}
	return nil
}

// LogConfig sets the global log level and output format.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

func (c *LogConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

func (c LogConfig) Validate() error {
	if _, err := zerolog.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	switch strings.ToLower(c.Format) {
	case "", "json", "console":
		return nil
	default:
		return fmt.Errorf("log: unknown format %q", c.Format)
	}
}
