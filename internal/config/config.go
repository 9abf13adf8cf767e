// Package config collects runtime configuration: environment knobs with
// defaults, plus optional capture tuning from a YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/inventory-tools/scanreg/internal/capture"
)

// Config holds the knobs for the serve command.
type Config struct {
	Addr      string
	DataDir   string
	NoticeTTL time.Duration
	Capture   capture.Config
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Load collects configuration from the environment with defaults. The
// capture section starts from DefaultConfig and is overlaid by
// SCANREG_CAPTURE_CONFIG when that file exists.
func Load() (Config, error) {
	cfg := Config{
		Addr:      getenv("SCANREG_ADDR", ":8888"),
		DataDir:   getenv("SCANREG_DATA_DIR", "data"),
		NoticeTTL: time.Duration(atoienv("SCANREG_NOTICE_TTL_SECONDS", 5)) * time.Second,
		Capture:   capture.DefaultConfig(),
	}

	path := getenv("SCANREG_CAPTURE_CONFIG", "capture.yaml")
	captureCfg, err := LoadCaptureFile(path)
	if err != nil {
		return Config{}, err
	}
	if captureCfg != nil {
		cfg.Capture = *captureCfg
	}
	return cfg, nil
}

// LoadCaptureFile parses capture tuning from a YAML file. A missing file
// is not an error; it just means defaults apply.
func LoadCaptureFile(path string) (*capture.Config, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read capture config: %w", err)
	}
	cfg := capture.DefaultConfig()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse capture config %s: %w", path, err)
	}
	return &cfg, nil
}
