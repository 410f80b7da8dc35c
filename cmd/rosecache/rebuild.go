package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	l "github.com/sirupsen/logrus"

	"gitlab.com/mipimipi/rosecache/internal/cache"
	"gitlab.com/mipimipi/rosecache/internal/store"
)

// rebuildCmd drops and recreates cache.sqlite3, then forces a full scan.
// Existing sidecars and embedded track ids are untouched on disk, so a
// rebuild reconstructs the same identities it had before (spec.md §3: "The
// cache is a pure function of (source tree, genre table, configuration) up
// to the set of UUIDs minted for previously-unseen entities").
var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Discard the cache database and rescan from scratch",
	Long:  "Remove cache.sqlite3 and rebuild it from the source tree and existing sidecars",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadCfg()

		dbPath := cfg.DatabasePath()
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			fmt.Printf("cannot remove existing cache database: %v\n", err)
			os.Exit(1)
		}
		for _, suffix := range []string{"-wal", "-shm"} {
			_ = os.Remove(dbPath + suffix)
		}

		db, err := store.Open(dbPath)
		if err != nil {
			fmt.Printf("cannot create cache database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		orch := cache.NewOrchestrator(&cfg, db)
		result, err := orch.RunCycle(true)
		if err != nil {
			fmt.Printf("rebuild failed: %v\n", err)
			os.Exit(1)
		}

		l.WithFields(l.Fields{"changed": result.ReleasesChanged}).Info("rebuild complete")
	},
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}
