package config

// Config is the v1 tool schema.
type Config struct {
	Version int           `toml:"version" json:"version"`
	Paths   PathsConfig   `toml:"paths" json:"paths"`
	Logging LoggingConfig `toml:"logging" json:"logging"`
	Audit   AuditConfig   `toml:"audit" json:"audit"`
	Metrics MetricsConfig `toml:"metrics" json:"metrics"`
	Watch   WatchConfig   `toml:"watch" json:"watch"`
}

type PathsConfig struct {
	// Store is the monitor configuration user file.
	Store string `toml:"store" json:"store"`
	// Legacy is the version 1 file migrated when Store does not exist yet.
	Legacy       string `toml:"legacy" json:"legacy"`
	LegacyBackup string `toml:"legacy_backup" json:"legacyBackup"`
	// Hardware is the YAML hardware snapshot describing connected outputs.
	Hardware string `toml:"hardware" json:"hardware"`
	// CustomStore, when set, replaces Store and is never written.
	CustomStore string `toml:"custom_store" json:"customStore,omitempty"`
}

type LoggingConfig struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"`
}

type AuditConfig struct {
	Path string `toml:"path" json:"path"`
}

type MetricsConfig struct {
	// Textfile is written after every command when set.
	Textfile string `toml:"textfile" json:"textfile,omitempty"`
}

type WatchConfig struct {
	Debounce string `toml:"debounce" json:"debounce"`
}
