package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testYAML = `
wake:
  phrase: "hello helper"
  greeting: "Listening."
  threshold: 0.8

store:
  backend: redis
  redis_addr: "${MURMUR_REDIS_ADDR}"

speech:
  voice: en-gb

skills:
  script_dir: /opt/murmur/skills
  threshold: 0.65

gateway:
  listen: ":9090"

sweep:
  interval: 5m

logging:
  mode: development
`

func TestParse(t *testing.T) {
	t.Setenv("MURMUR_REDIS_ADDR", "localhost:6379")

	cfg, err := Parse([]byte(testYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Wake.Phrase != "hello helper" {
		t.Errorf("wake phrase = %q", cfg.Wake.Phrase)
	}
	if cfg.Wake.Threshold != 0.8 {
		t.Errorf("wake threshold = %v", cfg.Wake.Threshold)
	}
	if cfg.Store.Backend != "redis" {
		t.Errorf("backend = %q", cfg.Store.Backend)
	}
	if cfg.Store.RedisAddr != "localhost:6379" {
		t.Errorf("redis addr = %q, env not expanded", cfg.Store.RedisAddr)
	}
	if cfg.Skills.Threshold != 0.65 {
		t.Errorf("skills threshold = %v", cfg.Skills.Threshold)
	}
	if cfg.Gateway.Listen != ":9090" {
		t.Errorf("gateway listen = %q", cfg.Gateway.Listen)
	}
	if cfg.Logging.Mode != "development" {
		t.Errorf("logging mode = %q", cfg.Logging.Mode)
	}

	interval, err := cfg.SweepInterval()
	if err != nil {
		t.Fatalf("SweepInterval: %v", err)
	}
	if interval != 5*time.Minute {
		t.Errorf("interval = %v", interval)
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Wake.Phrase != "hey murmur" {
		t.Errorf("default wake phrase = %q", cfg.Wake.Phrase)
	}
	if cfg.Wake.Threshold != 0.7 || cfg.Skills.Threshold != 0.7 {
		t.Errorf("default thresholds = %v, %v", cfg.Wake.Threshold, cfg.Skills.Threshold)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Store.DataDir != "data" {
		t.Errorf("default store = %+v", cfg.Store)
	}
	if cfg.Rack.Corridors != 8 {
		t.Errorf("default corridors = %d", cfg.Rack.Corridors)
	}
	if interval, err := cfg.SweepInterval(); err != nil || interval != time.Minute {
		t.Errorf("default interval = %v, %v", interval, err)
	}
}

func TestParseUnsetEnvLeftVerbatim(t *testing.T) {
	os.Unsetenv("MURMUR_MISSING_DIR")
	cfg, err := Parse([]byte("store:\n  data_dir: \"${MURMUR_MISSING_DIR}\"\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Store.DataDir != "${MURMUR_MISSING_DIR}" {
		t.Errorf("data_dir = %q", cfg.Store.DataDir)
	}
}

func TestParseRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"unknown backend":         "store:\n  backend: dynamo\n",
		"redis without addr":      "store:\n  backend: redis\n",
		"threshold above one":     "wake:\n  threshold: 1.5\n",
		"negative threshold":      "skills:\n  threshold: -0.1\n",
		"negative corridors":      "rack:\n  corridors: -3\n",
		"unparsable sweep window": "sweep:\n  interval: soon\n",
	}
	for name, yaml := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(yaml)); err == nil {
				t.Fatal("Parse accepted invalid config")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "murmur.yaml")
	if err := os.WriteFile(path, []byte("wake:\n  phrase: hi there\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Wake.Phrase != "hi there" {
		t.Errorf("phrase = %q", cfg.Wake.Phrase)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Load on missing file should fail")
	}
}
