package config

import (
	"fmt"
	"sort"
	"strings"
)

// settings maps dotted keys to the config fields they address.
var settings = map[string]func(cfg *Config) *string{
	"paths.store":         func(cfg *Config) *string { return &cfg.Paths.Store },
	"paths.legacy":        func(cfg *Config) *string { return &cfg.Paths.Legacy },
	"paths.legacy_backup": func(cfg *Config) *string { return &cfg.Paths.LegacyBackup },
	"paths.hardware":      func(cfg *Config) *string { return &cfg.Paths.Hardware },
	"paths.custom_store":  func(cfg *Config) *string { return &cfg.Paths.CustomStore },
	"logging.level":       func(cfg *Config) *string { return &cfg.Logging.Level },
	"logging.format":      func(cfg *Config) *string { return &cfg.Logging.Format },
	"audit.path":          func(cfg *Config) *string { return &cfg.Audit.Path },
	"metrics.textfile":    func(cfg *Config) *string { return &cfg.Metrics.Textfile },
	"watch.debounce":      func(cfg *Config) *string { return &cfg.Watch.Debounce },
}

// Keys lists every settable key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(settings))
	for key := range settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func Get(cfg Config, key string) (string, error) {
	field, ok := settings[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return "", fmt.Errorf("DOC_CONFIG_KEY: unknown key %q", key)
	}
	return *field(&cfg), nil
}

// Set assigns value to key. The config is left unchanged if the result does
// not validate.
func Set(cfg *Config, key, value string) error {
	if cfg == nil {
		return fmt.Errorf("DOC_CONFIG_KEY: nil config")
	}
	field, ok := settings[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return fmt.Errorf("DOC_CONFIG_KEY: unknown key %q", key)
	}
	updated := *cfg
	*field(&updated) = value
	updated = Normalize(updated)
	if err := Validate(updated); err != nil {
		return err
	}
	*cfg = updated
	return nil
}
