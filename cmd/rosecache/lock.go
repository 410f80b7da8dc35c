package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gitlab.com/mipimipi/rosecache/internal/cache"
	"gitlab.com/mipimipi/rosecache/internal/store"
)

// lockCmd is a manual escape hatch for an operator to clear a stuck
// cache-update lock, e.g. after a crashed scan whose lease has not yet
// expired (spec.md §4.J).
var lockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Manually release the cache-update lock",
	Long:  "Delete the cache-update lock row, freeing it immediately instead of waiting out its lease",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadCfg()

		db, err := store.Open(cfg.DatabasePath())
		if err != nil {
			fmt.Printf("cannot open cache database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := cache.ReleaseLock(db, "cache-update"); err != nil {
			fmt.Printf("cannot release lock: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("lock released")
	},
}

func init() {
	rootCmd.AddCommand(lockCmd)
}
