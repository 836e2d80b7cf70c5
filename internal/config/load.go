package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
)

// maxConfigSize bounds the config file we are willing to parse.
const maxConfigSize = 1 << 20

// Load reads a JSON (comments and trailing commas allowed) config file on top
// of base. Fields absent from the file keep their base values.
func Load(path string, base Config) (Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".json" && ext != ".hujson" && ext != ".jsonc" {
		return base, fmt.Errorf("config file must be .json, .jsonc or .hujson, got %q", ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return base, fmt.Errorf("stat config: %w", err)
	}
	if info.Size() > maxConfigSize {
		return base, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data, base)
	if err != nil {
		return base, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes HuJSON config data on top of base and validates the result.
func Parse(data []byte, base Config) (Config, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return base, fmt.Errorf("parse config: %w", err)
	}

	cfg := base.Clone()
	// A classes object in the file replaces the defaults instead of merging.
	var probe struct {
		Colour struct {
			Classes json.RawMessage `json:"classes"`
		} `json:"colour"`
	}
	if err := json.Unmarshal(std, &probe); err != nil {
		return base, fmt.Errorf("decode config: %w", err)
	}
	if len(probe.Colour.Classes) > 0 {
		cfg.Colour.Classes = nil
	}

	if err := json.Unmarshal(std, &cfg); err != nil {
		return base, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return base, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
