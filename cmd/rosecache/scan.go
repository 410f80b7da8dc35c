package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	l "github.com/sirupsen/logrus"

	"gitlab.com/mipimipi/rosecache/internal/cache"
	"gitlab.com/mipimipi/rosecache/internal/store"
)

var forceScan bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one cache update cycle",
	Long:  "Scan the configured music source tree and bring the cache up to date",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadCfg()

		db, err := store.Open(cfg.DatabasePath())
		if err != nil {
			fmt.Printf("cannot open cache database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		orch := cache.NewOrchestrator(&cfg, db)
		result, err := orch.RunCycle(forceScan)
		if err != nil {
			fmt.Printf("scan failed: %v\n", err)
			os.Exit(1)
		}

		l.WithFields(l.Fields{
			"changed":            result.ReleasesChanged,
			"skipped":            result.ReleasesSkipped,
			"collages_rewritten": result.CollagesRewritten,
			"playlists_rewritten": result.PlaylistsRewritten,
		}).Info("scan complete")
	},
}

func init() {
	scanCmd.Flags().BoolVar(&forceScan, "force", false, "ignore the mtime prefilter and rescan every release")
	rootCmd.AddCommand(scanCmd)
}
