package config

import "strings"

func Normalize(cfg Config) Config {
	if cfg.Version == 0 {
		cfg.Version = SchemaVersion
	}
	if cfg.Paths.Store == "" {
		cfg.Paths.Store = DefaultStorePath
	}
	if cfg.Paths.Legacy == "" {
		cfg.Paths.Legacy = DefaultLegacyPath
	}
	if cfg.Paths.LegacyBackup == "" {
		cfg.Paths.LegacyBackup = DefaultLegacyBackupPath
	}
	if cfg.Paths.Hardware == "" {
		cfg.Paths.Hardware = DefaultHardwarePath
	}
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = DefaultDebounce
	}
	return cfg
}
