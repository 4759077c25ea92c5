package config

import (
	"fmt"
	"time"
)

var allowedLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

var allowedLogFormats = map[string]struct{}{
	"text": {},
	"json": {},
}

func Validate(cfg Config) error {
	if cfg.Version != SchemaVersion {
		return fmt.Errorf("DOC_CONFIG_VERSION: unsupported version %d", cfg.Version)
	}
	if cfg.Paths.Store == "" || cfg.Paths.Legacy == "" || cfg.Paths.Hardware == "" {
		return fmt.Errorf("DOC_CONFIG_PATHS: missing store/legacy/hardware path")
	}
	if cfg.Paths.CustomStore != "" && cfg.Paths.CustomStore == cfg.Paths.Store {
		return fmt.Errorf("DOC_CONFIG_PATHS: custom store must differ from the user store")
	}
	if _, ok := allowedLogLevels[cfg.Logging.Level]; !ok {
		return fmt.Errorf("DOC_CONFIG_LOGGING: invalid log level %q", cfg.Logging.Level)
	}
	if _, ok := allowedLogFormats[cfg.Logging.Format]; !ok {
		return fmt.Errorf("DOC_CONFIG_LOGGING: invalid log format %q", cfg.Logging.Format)
	}
	if _, err := WatchDebounce(cfg); err != nil {
		return err
	}
	return nil
}

// WatchDebounce parses the watcher debounce interval.
func WatchDebounce(cfg Config) (time.Duration, error) {
	d, err := time.ParseDuration(cfg.Watch.Debounce)
	if err != nil {
		return 0, fmt.Errorf("DOC_CONFIG_WATCH: invalid debounce %q: %w", cfg.Watch.Debounce, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("DOC_CONFIG_WATCH: debounce must be positive, got %s", d)
	}
	return d, nil
}
