package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"monitorcfg/internal/config"
	"monitorcfg/internal/migrate"
	"monitorcfg/internal/store"
)

type versionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	// StoreFormat is the monitors.xml version read and written.
	StoreFormat string `json:"storeFormat"`
	// LegacyFormat is the monitors.xml version only migrated from.
	LegacyFormat string `json:"legacyFormat"`
}

func (v versionInfo) String() string {
	return fmt.Sprintf("monitorcfg %s (commit %s, built %s)\nstore format %s, migrates format %s",
		v.Version, v.Commit, v.Date, v.StoreFormat, v.LegacyFormat)
}

func newVersionCmd(jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build and file format versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := versionInfo{
				Version:      config.Version,
				Commit:       config.Commit,
				Date:         config.Date,
				StoreFormat:  store.FormatVersion,
				LegacyFormat: migrate.LegacyVersion,
			}
			return print(*jsonOutput, info, info.String())
		},
	}
}
