package cache

import (
	"time"

	"github.com/pkg/errors"
	l "github.com/sirupsen/logrus"
)

// cascadeManifests re-scans every collage/playlist manifest whose members
// reference an entity touched by this cycle, with force semantics, per
// spec.md §4.F "Cascade": "After a release or track change lands in the
// cache, every collage/playlist whose members reference the changed
// entities is re-scanned in the same orchestration pass." Every manifest
// scanned here has its Collage/Playlist value persisted into the
// collages/collages_releases or playlists/playlists_tracks tables, not only
// when ScanCollage/ScanPlaylist reports its description_meta as stale:
// membership, position, and missing-ness all need to reach the query
// surface even on a scan that rewrites nothing on disk.
//
// Since membership itself never changes as a side effect of a release/track
// edit (only description_meta might), cascading conservatively re-scans
// every manifest of the affected kind rather than computing a precise
// affected set — a manifest whose members are unaffected simply finds
// nothing to rewrite. A release-level change cascades to both collages and
// playlists; a track-artist-only change (no release row touched) cascades
// to playlists only, since collage entries reference releases, not tracks.
func (o *Orchestrator) cascadeManifests(affectedReleases, affectedTracks map[string]bool) (rewrittenCollages, rewrittenPlaylists int, err error) {
	q := NewQuery(o.db)

	tx, err := o.db.Begin()
	if err != nil {
		return 0, 0, errors.Wrap(err, "cannot begin manifest-persistence transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if len(affectedReleases) > 0 {
		var collageFiles []string
		collageFiles, err = ListManifestFiles(o.cfg.CollagesDir())
		if err != nil {
			return 0, 0, err
		}
		for _, path := range collageFiles {
			collage, dirty, scanErr := ScanCollage(path, func(id string) (string, string, time.Time, bool) {
				r, getErr := q.GetRelease(id)
				if getErr != nil {
					return "", "", time.Time{}, false
				}
				return r.Title, r.FormattedArtists, r.AddedAt, true
			})
			if scanErr != nil {
				orchLog.WithFields(l.Fields{"path": path, "err": scanErr}).Warn("collage cascade scan failed")
				continue
			}
			if err = writeCollageRows(tx, collage); err != nil {
				return 0, 0, err
			}
			if dirty {
				rewrittenCollages++
			}
		}
	}

	if len(affectedReleases) == 0 && len(affectedTracks) == 0 {
		if err = tx.Commit(); err != nil {
			return rewrittenCollages, 0, errors.Wrap(err, "cannot commit manifest persistence")
		}
		return rewrittenCollages, 0, nil
	}

	var playlistFiles []string
	playlistFiles, err = ListManifestFiles(o.cfg.PlaylistsDir())
	if err != nil {
		return rewrittenCollages, 0, err
	}
	for _, path := range playlistFiles {
		playlist, dirty, scanErr := ScanPlaylist(path, func(id string) (string, string, bool) {
			t, getErr := q.GetTrack(id)
			if getErr != nil {
				return "", "", false
			}
			return t.Title, t.FormattedArtists, true
		})
		if scanErr != nil {
			orchLog.WithFields(l.Fields{"path": path, "err": scanErr}).Warn("playlist cascade scan failed")
			continue
		}
		if err = writePlaylistRows(tx, playlist); err != nil {
			return rewrittenCollages, 0, err
		}
		if dirty {
			rewrittenPlaylists++
		}
	}

	if err = tx.Commit(); err != nil {
		return rewrittenCollages, rewrittenPlaylists, errors.Wrap(err, "cannot commit manifest persistence")
	}
	return rewrittenCollages, rewrittenPlaylists, nil
}
