package cache

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	l "github.com/sirupsen/logrus"

	"gitlab.com/mipimipi/rosecache/internal/config"
	"gitlab.com/mipimipi/rosecache/internal/store"
)

var orchLog = l.WithFields(l.Fields{"pkg": "cache", "component": "orchestrator"})

const lockName = "cache-update"

// Orchestrator drives one full library mutation cycle, per spec.md §4.G.
type Orchestrator struct {
	cfg *config.Cfg
	db  *store.DB
}

func NewOrchestrator(cfg *config.Cfg, db *store.DB) *Orchestrator {
	return &Orchestrator{cfg: cfg, db: db}
}

// CycleResult summarizes one orchestration pass for callers (CLI, logs).
type CycleResult struct {
	ReleasesChanged  int
	ReleasesSkipped  int
	CollagesRewritten int
	PlaylistsRewritten int
}

// RunCycle implements spec.md §4.G's single entry point per library
// mutation cycle: lock, enumerate, dispatch to workers, one write
// transaction, FTS update, manifest cascade, unlock.
func (o *Orchestrator) RunCycle(force bool) (CycleResult, error) {
	lease := time.Duration(o.cfg.LockLeaseSeconds) * time.Second
	if err := AcquireLock(o.db, lockName, lease); err != nil {
		return CycleResult{}, errors.Wrap(err, "cannot acquire cache-update lock")
	}
	defer func() {
		if err := ReleaseLock(o.db, lockName); err != nil {
			orchLog.WithFields(l.Fields{"err": err}).Warn("failed to release lock")
		}
	}()

	dirs, err := enumerateReleaseDirs(o.cfg)
	if err != nil {
		return CycleResult{}, err
	}

	stopRenew := o.renewLockPeriodically(lockName, lease)
	changes := o.dispatchScans(dirs, force)
	close(stopRenew)

	result := CycleResult{}
	affectedReleases := map[string]bool{}
	affectedTracks := map[string]bool{}

	tx, err := o.db.Begin()
	if err != nil {
		return result, errors.Wrap(err, "cannot begin write transaction")
	}

	for _, change := range changes {
		if change == nil {
			result.ReleasesSkipped++
			continue
		}
		if err := applyReleaseChange(tx, *change); err != nil {
			tx.Rollback()
			return result, errors.Wrap(err, "cannot apply release change, cycle aborted")
		}
		result.ReleasesChanged++
		affectedReleases[change.Release.ID] = true
		for _, tc := range change.TrackChanges {
			affectedTracks[tc.Track.ID] = true
			if tc.Kind == ChangeDeleted {
				if err := DeleteTrackFTS(tx, tc.Track.ID); err != nil {
					tx.Rollback()
					return result, err
				}
				continue
			}
			if err := UpdateTrackFTS(tx, tc.Track, change.Release); err != nil {
				tx.Rollback()
				return result, err
			}
		}
	}

	if err := evictMissing(tx, dirs); err != nil {
		tx.Rollback()
		return result, errors.Wrap(err, "cannot evict stale entries")
	}

	if err := tx.Commit(); err != nil {
		return result, errors.Wrap(err, "cache-update transaction commit failed, cycle aborted")
	}

	rewrittenCollages, rewrittenPlaylists, err := o.cascadeManifests(affectedReleases, affectedTracks)
	if err != nil {
		orchLog.WithFields(l.Fields{"err": err}).Warn("manifest cascade failed")
	}
	result.CollagesRewritten = rewrittenCollages
	result.PlaylistsRewritten = rewrittenPlaylists

	return result, nil
}

// renewLockPeriodically keeps the cache-update lock's lease from expiring
// out from under a scan that legitimately takes longer than one lease
// window, renewing at half the lease duration until stop is closed. It
// does not guard against a stuck scan: a holder that never closes stop
// still loses the lock once RunCycle's deferred ReleaseLock runs, or once
// another operator clears it with `rosecache unlock`.
func (o *Orchestrator) renewLockPeriodically(name string, lease time.Duration) chan struct{} {
	stop := make(chan struct{})
	ticker := time.NewTicker(lease / 2)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := RenewLock(o.db, name, lease); err != nil {
					orchLog.WithFields(l.Fields{"err": err}).Warn("failed to renew cache-update lock")
				}
			case <-stop:
				return
			}
		}
	}()
	return stop
}

func enumerateReleaseDirs(cfg *config.Cfg) ([]string, error) {
	entries, err := os.ReadDir(cfg.MusicSourceDir)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list music source dir '%s'", cfg.MusicSourceDir)
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if name == cfg.CollagesDirName || name == cfg.PlaylistsDirName {
			continue
		}
		dirs = append(dirs, filepath.Join(cfg.MusicSourceDir, name))
	}
	return dirs, nil
}

// dispatchScans runs ScanRelease over dirs using a worker pool sized by
// configuration, per spec.md §4.G "Workers share only read state and
// return change records through a channel."
func (o *Orchestrator) dispatchScans(dirs []string, force bool) []*ReleaseChange {
	jobs := make(chan string, len(dirs))
	results := make(chan *ReleaseChange, len(dirs))

	var wg sync.WaitGroup
	for i := 0; i < o.cfg.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for dir := range jobs {
				prior, err := loadPriorState(o.db, dir)
				if err != nil {
					orchLog.WithFields(l.Fields{"dir": dir, "err": err}).Warn("cannot load prior state, scanning unconditionally")
				}
				change, err := ScanRelease(dir, ScanOptions{Cfg: o.cfg, Force: force, Prior: prior})
				if err != nil {
					orchLog.WithFields(l.Fields{"dir": dir, "err": err}).Warn("release scan failed, skipping")
					results <- nil
					continue
				}
				results <- change
			}
		}()
	}

	for _, d := range dirs {
		jobs <- d
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var changes []*ReleaseChange
	for c := range results {
		changes = append(changes, c)
	}
	return changes
}

func loadPriorState(db *store.DB, dir string) (*CachedReleaseState, error) {
	var sidecarMtime int64
	var releaseID string
	err := db.QueryRow("SELECT id, sidecar_mtime FROM releases WHERE source_path = ?", dir).Scan(&releaseID, &sidecarMtime)
	if err != nil {
		return nil, nil // not yet cached
	}

	rows, err := db.Query("SELECT id, source_path, source_mtime FROM tracks WHERE release_id = ?", releaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tracks := map[string]CachedTrackState{}
	for rows.Next() {
		var trackID, path string
		var mtime int64
		if err := rows.Scan(&trackID, &path, &mtime); err != nil {
			return nil, err
		}
		tracks[path] = CachedTrackState{ID: trackID, Mtime: mtime}
	}

	return &CachedReleaseState{SidecarMtime: sidecarMtime, Tracks: tracks}, nil
}
