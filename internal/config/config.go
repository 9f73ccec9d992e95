// Package config loads the assistant configuration from YAML. String values
// may reference environment variables as ${NAME}; unset variables are left
// verbatim so the error surfaces where the value is used.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Wake    WakeConfig    `yaml:"wake"`
	Store   StoreConfig   `yaml:"store"`
	Speech  SpeechConfig  `yaml:"speech"`
	Rack    RackConfig    `yaml:"rack"`
	Skills  SkillsConfig  `yaml:"skills"`
	Gateway GatewayConfig `yaml:"gateway"`
	Sweep   SweepConfig   `yaml:"sweep"`
	Logging LoggingConfig `yaml:"logging"`
}

type WakeConfig struct {
	Phrase    string  `yaml:"phrase"`
	Greeting  string  `yaml:"greeting"`
	Threshold float64 `yaml:"threshold"`
}

type StoreConfig struct {
	// Backend is "sqlite" or "redis".
	Backend   string `yaml:"backend"`
	DataDir   string `yaml:"data_dir"`
	RedisAddr string `yaml:"redis_addr"`
}

type SpeechConfig struct {
	Voice string `yaml:"voice"`
}

type RackConfig struct {
	Corridors int `yaml:"corridors"`
}

type SkillsConfig struct {
	ScriptDir string  `yaml:"script_dir"`
	Threshold float64 `yaml:"threshold"`
}

type GatewayConfig struct {
	Listen string `yaml:"listen"`
}

type SweepConfig struct {
	Interval string `yaml:"interval"`
}

type LoggingConfig struct {
	// Mode is "production" or "development".
	Mode string `yaml:"mode"`
}

// SweepInterval parses the sweep interval, defaulting to one minute.
func (c *Config) SweepInterval() (time.Duration, error) {
	if c.Sweep.Interval == "" {
		return time.Minute, nil
	}
	d, err := time.ParseDuration(c.Sweep.Interval)
	if err != nil {
		return 0, fmt.Errorf("config: sweep interval: %w", err)
	}
	return d, nil
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)}`)

func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

func expandAll(cfg *Config) {
	cfg.Wake.Phrase = expandEnv(cfg.Wake.Phrase)
	cfg.Wake.Greeting = expandEnv(cfg.Wake.Greeting)
	cfg.Store.DataDir = expandEnv(cfg.Store.DataDir)
	cfg.Store.RedisAddr = expandEnv(cfg.Store.RedisAddr)
	cfg.Speech.Voice = expandEnv(cfg.Speech.Voice)
	cfg.Skills.ScriptDir = expandEnv(cfg.Skills.ScriptDir)
	cfg.Gateway.Listen = expandEnv(cfg.Gateway.Listen)
}

func applyDefaults(cfg *Config) {
	if cfg.Wake.Phrase == "" {
		cfg.Wake.Phrase = "hey murmur"
	}
	if cfg.Wake.Greeting == "" {
		cfg.Wake.Greeting = "Yes?"
	}
	if cfg.Wake.Threshold == 0 {
		cfg.Wake.Threshold = 0.7
	}
	if cfg.Skills.Threshold == 0 {
		cfg.Skills.Threshold = 0.7
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "sqlite"
	}
	if cfg.Store.DataDir == "" {
		cfg.Store.DataDir = "data"
	}
	if cfg.Rack.Corridors == 0 {
		cfg.Rack.Corridors = 8
	}
	if cfg.Logging.Mode == "" {
		cfg.Logging.Mode = "production"
	}
}

func validate(cfg *Config) error {
	switch cfg.Store.Backend {
	case "sqlite":
	case "redis":
		if cfg.Store.RedisAddr == "" {
			return fmt.Errorf("config: redis backend requires store.redis_addr")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", cfg.Store.Backend)
	}
	if cfg.Wake.Threshold <= 0 || cfg.Wake.Threshold > 1 {
		return fmt.Errorf("config: wake threshold %v out of (0, 1]", cfg.Wake.Threshold)
	}
	if cfg.Skills.Threshold <= 0 || cfg.Skills.Threshold > 1 {
		return fmt.Errorf("config: skills threshold %v out of (0, 1]", cfg.Skills.Threshold)
	}
	if cfg.Rack.Corridors < 1 {
		return fmt.Errorf("config: rack corridors %d must be positive", cfg.Rack.Corridors)
	}
	if _, err := cfg.SweepInterval(); err != nil {
		return err
	}
	return nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	expandAll(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
