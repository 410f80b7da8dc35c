package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rjeczalik/notify"
	"github.com/spf13/cobra"
	l "github.com/sirupsen/logrus"

	"gitlab.com/mipimipi/rosecache/internal/cache"
	"gitlab.com/mipimipi/rosecache/internal/store"
)

// watchCmd runs the orchestrator continuously: once immediately, then again
// on every inotify event under the music source tree and on ScanInterval as
// a fallback, for as long as the process keeps running.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the music source tree and rescan on change",
	Long:  "Run scan cycles continuously, triggered by filesystem events and a periodic fallback ticker",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadCfg()

		db, err := store.Open(cfg.DatabasePath())
		if err != nil {
			fmt.Printf("cannot open cache database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		orch := cache.NewOrchestrator(&cfg, db)

		chgs := make(chan notify.EventInfo, 32)
		if err := notify.Watch(cfg.MusicSourceDir+"/...", chgs, notify.All); err != nil {
			fmt.Printf("cannot watch '%s': %v\n", cfg.MusicSourceDir, err)
			os.Exit(1)
		}
		defer notify.Stop(chgs)

		ticker := time.NewTicker(cfg.ScanInterval())
		defer ticker.Stop()

		// sema ensures only one cycle runs at a time; an inotify event or
		// tick that arrives while a cycle is running is dropped instead of
		// stacking a concurrent scan, and the next event or tick starts a
		// new cycle.
		sema := make(chan struct{}, 1)

		runCycle := func() {
			select {
			case sema <- struct{}{}:
			default:
				return
			}
			go func() {
				defer func() { <-sema }()
				result, err := orch.RunCycle(false)
				if err != nil {
					l.WithFields(l.Fields{"err": err}).Warn("scan cycle failed")
					return
				}
				l.WithFields(l.Fields{
					"changed":             result.ReleasesChanged,
					"collages_rewritten":  result.CollagesRewritten,
					"playlists_rewritten": result.PlaylistsRewritten,
				}).Info("scan complete")
			}()
		}

		runCycle()
		for {
			select {
			case <-chgs:
				runCycle()
			case <-ticker.C:
				runCycle()
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
