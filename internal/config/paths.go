package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/monitorcfg/config.toml"
	}
	return filepath.Join(home, ".config", "monitorcfg", "config.toml")
}

func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", errors.New("empty path")
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
	}
	return path, nil
}

// expandOptional expands path, keeping an empty path empty.
func expandOptional(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	expanded, err := ExpandPath(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(expanded), nil
}

// ResolvePaths returns cfg.Paths with every path expanded.
func ResolvePaths(cfg Config) (PathsConfig, error) {
	var out PathsConfig
	for _, p := range []struct {
		in  string
		out *string
	}{
		{cfg.Paths.Store, &out.Store},
		{cfg.Paths.Legacy, &out.Legacy},
		{cfg.Paths.LegacyBackup, &out.LegacyBackup},
		{cfg.Paths.Hardware, &out.Hardware},
		{cfg.Paths.CustomStore, &out.CustomStore},
	} {
		expanded, err := expandOptional(p.in)
		if err != nil {
			return PathsConfig{}, err
		}
		*p.out = expanded
	}
	return out, nil
}

func ResolveAuditPath(cfg Config) (string, error) {
	return expandOptional(cfg.Audit.Path)
}

func ResolveMetricsTextfile(cfg Config) (string, error) {
	return expandOptional(cfg.Metrics.Textfile)
}
