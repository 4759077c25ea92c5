package config

// Set at build time with -ldflags "-X monitorcfg/internal/config.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
