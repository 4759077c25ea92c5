package config

const (
	SchemaVersion = 1

	DefaultStorePath        = "~/.config/monitors-experimental.xml"
	DefaultLegacyPath       = "~/.config/monitors.xml"
	DefaultLegacyBackupPath = "~/.config/monitors-v1-backup.xml"
	DefaultHardwarePath     = "~/.config/monitorcfg/hardware.yaml"
	DefaultAuditPath        = "~/.local/state/monitorcfg/audit.log"
	DefaultDebounce         = "250ms"
)

// DefaultConfig returns a fully-populated v1 config document.
func DefaultConfig() Config {
	return Config{
		Version: SchemaVersion,
		Paths: PathsConfig{
			Store:        DefaultStorePath,
			Legacy:       DefaultLegacyPath,
			LegacyBackup: DefaultLegacyBackupPath,
			Hardware:     DefaultHardwarePath,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Audit: AuditConfig{
			Path: DefaultAuditPath,
		},
		Watch: WatchConfig{
			Debounce: DefaultDebounce,
		},
	}
}
