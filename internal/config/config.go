// Package config holds monitorcfg's own settings: where the monitor store,
// the legacy file and the hardware snapshot live, plus logging, audit,
// metrics and watcher options. It never holds monitor layouts.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"monitorcfg/internal/fsutil"
)

const fileHeader = "# monitorcfg settings. Paths may start with ~/.\n# Change them with `monitorcfg config set <key> <value>`.\n\n"

// Ensure loads the settings at path. On first run the defaults are written
// there and returned.
func Ensure(path string) (Config, error) {
	path = orDefault(path)
	cfg, err := Load(path)
	if !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}
	cfg = DefaultConfig()
	if err := Save(path, cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and validates the settings at path. Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(orDefault(path))
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("DOC_CONFIG_PARSE: %w", err)
	}
	cfg = Normalize(cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save normalizes and validates cfg before replacing the file at path.
func Save(path string, cfg Config) error {
	cfg = Normalize(cfg)
	if err := Validate(cfg); err != nil {
		return err
	}
	var b bytes.Buffer
	b.WriteString(fileHeader)
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("DOC_CONFIG_ENCODE: %w", err)
	}
	return fsutil.AtomicWrite(orDefault(path), b.Bytes(), 0o644)
}

func orDefault(path string) string {
	if path == "" {
		return DefaultConfigPath()
	}
	return path
}
