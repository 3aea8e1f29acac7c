package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/storageopt/core/metrics"
	"github.com/kilianp07/storageopt/core/solver"
	"github.com/kilianp07/storageopt/infra/mqtt"
)

// EnvPrefix marks environment variables overriding file settings.
// STORAGEOPT_RUNNER__PARALLELISM=4 sets runner.parallelism.
const EnvPrefix = "STORAGEOPT_"

type Config struct {
	Solver    solver.Config   `json:"solver"`
	Optimiser OptimiserConfig `json:"optimiser"`
	Runner    RunnerConfig    `json:"runner"`
	Log       LogConfig       `json:"log"`
	RunLog    RunLogConfig    `json:"run_log"`
	Metrics   metrics.Config  `json:"metrics"`
	MQTT      mqtt.Config     `json:"mqtt"`
	Sentry    SentryConfig    `json:"sentry"`
}

// Load reads the file at path, applies environment overrides and defaults
// and validates the result. An empty path loads defaults and environment
// only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Solver = cfg.Solver.FromEnv()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) SetDefaults() {
	c.Solver.SetDefaults()
	c.Runner.SetDefaults()
	c.Log.SetDefaults()
	c.RunLog.SetDefaults()
}

func (c Config) Validate() error {
	for _, v := range []interface{ Validate() error }{c.Solver, c.Optimiser, c.Runner, c.Log, c.RunLog, c.Sentry} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
