package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var preamble = `rosecache ` + Version + `

rosecache is the indexing and cache subsystem for a source tree of music
releases: it scans audio files and TOML manifests into a queryable SQLite
cache, minting stable identifiers that survive renames and rebuilds.`

var cfgPath string

var rootCmd = &cobra.Command{
	Use:     "rosecache",
	Short:   "rosecache music library cache",
	Long:    preamble,
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to the rosecache configuration file")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}
}
