package cache

import (
	"database/sql"

	"github.com/pkg/errors"
)

// applyReleaseChange inserts/updates/deletes one release and its tracks and
// related sets within the orchestrator's single write transaction.
func applyReleaseChange(tx *sql.Tx, change ReleaseChange) error {
	if change.Kind == ChangeDeleted {
		_, err := tx.Exec("DELETE FROM releases WHERE id = ?", change.Release.ID)
		return errors.Wrapf(err, "cannot delete release '%s'", change.Release.ID)
	}

	r := change.Release
	_, err := tx.Exec(`INSERT INTO releases
		(id, source_path, added_at, sidecar_mtime, title, release_type, release_year,
		 original_year, composition_year, multidisc, is_new, formatted_artists, cover_image_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_path = excluded.source_path,
			sidecar_mtime = excluded.sidecar_mtime,
			title = excluded.title,
			release_type = excluded.release_type,
			release_year = excluded.release_year,
			original_year = excluded.original_year,
			composition_year = excluded.composition_year,
			multidisc = excluded.multidisc,
			is_new = excluded.is_new,
			formatted_artists = excluded.formatted_artists,
			cover_image_path = excluded.cover_image_path`,
		r.ID, r.SourcePath, r.AddedAt.UTC().Format("2006-01-02T15:04:05Z07:00"), r.SidecarMtime,
		r.Title, string(r.ReleaseType), nullableInt(r.Year), nullableInt(r.OriginalYear), nullableInt(r.CompositionYear),
		boolToInt(r.Multidisc), boolToInt(r.New), r.FormattedArtists, nullableString(r.CoverImagePath),
	)
	if err != nil {
		return errors.Wrapf(err, "cannot upsert release '%s'", r.ID)
	}

	if err := replaceReleaseArtists(tx, r); err != nil {
		return err
	}
	if err := replaceReleaseGenres(tx, r); err != nil {
		return err
	}
	if err := replaceReleaseLabels(tx, r); err != nil {
		return err
	}
	if err := replaceReleaseDescriptors(tx, r); err != nil {
		return err
	}

	for _, tc := range change.TrackChanges {
		if err := applyTrackChange(tx, tc); err != nil {
			return err
		}
	}
	return nil
}

func applyTrackChange(tx *sql.Tx, tc TrackChange) error {
	if tc.Kind == ChangeDeleted {
		_, err := tx.Exec("DELETE FROM tracks WHERE id = ?", tc.Track.ID)
		return errors.Wrapf(err, "cannot delete track '%s'", tc.Track.ID)
	}

	t := tc.Track
	_, err := tx.Exec(`INSERT INTO tracks
		(id, release_id, source_path, source_mtime, virtual_filename, title, track_number,
		 disc_number, formatted_position, duration_seconds, formatted_artists)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			release_id = excluded.release_id,
			source_path = excluded.source_path,
			source_mtime = excluded.source_mtime,
			virtual_filename = excluded.virtual_filename,
			title = excluded.title,
			track_number = excluded.track_number,
			disc_number = excluded.disc_number,
			formatted_position = excluded.formatted_position,
			duration_seconds = excluded.duration_seconds,
			formatted_artists = excluded.formatted_artists`,
		t.ID, t.ReleaseID, t.SourcePath, t.SourceMtime, t.VirtualFilename, t.Title,
		t.TrackNumber, t.DiscNumber, t.FormattedPosition, t.Duration, t.FormattedArtists,
	)
	if err != nil {
		return errors.Wrapf(err, "cannot upsert track '%s'", t.ID)
	}

	if _, err := tx.Exec("DELETE FROM tracks_artists WHERE track_id = ?", t.ID); err != nil {
		return errors.Wrap(err, "cannot clear track artists")
	}
	for _, a := range t.Artists {
		if _, err := tx.Exec(
			"INSERT INTO tracks_artists (track_id, name, sanitized, role, is_alias) VALUES (?, ?, ?, ?, ?)",
			t.ID, a.Name, a.Sanitized, string(a.Role), boolToInt(a.IsAlias),
		); err != nil {
			return errors.Wrap(err, "cannot insert track artist")
		}
	}
	return nil
}

func replaceReleaseArtists(tx *sql.Tx, r Release) error {
	if _, err := tx.Exec("DELETE FROM releases_artists WHERE release_id = ?", r.ID); err != nil {
		return errors.Wrap(err, "cannot clear release artists")
	}
	for _, a := range r.Artists {
		if _, err := tx.Exec(
			"INSERT INTO releases_artists (release_id, name, sanitized, role, is_alias) VALUES (?, ?, ?, ?, ?)",
			r.ID, a.Name, a.Sanitized, string(a.Role), boolToInt(a.IsAlias),
		); err != nil {
			return errors.Wrap(err, "cannot insert release artist")
		}
	}
	return nil
}

func replaceReleaseGenres(tx *sql.Tx, r Release) error {
	if _, err := tx.Exec("DELETE FROM releases_genres WHERE release_id = ?", r.ID); err != nil {
		return errors.Wrap(err, "cannot clear release genres")
	}
	for _, g := range r.Genres {
		if _, err := tx.Exec(
			"INSERT INTO releases_genres (release_id, genre, sanitized) VALUES (?, ?, ?)",
			r.ID, g.Name, g.Sanitized,
		); err != nil {
			return errors.Wrap(err, "cannot insert release genre")
		}
	}
	if _, err := tx.Exec("DELETE FROM releases_secondary_genres WHERE release_id = ?", r.ID); err != nil {
		return errors.Wrap(err, "cannot clear release secondary genres")
	}
	for _, g := range r.SecondaryGenres {
		if _, err := tx.Exec(
			"INSERT INTO releases_secondary_genres (release_id, genre, sanitized) VALUES (?, ?, ?)",
			r.ID, g.Name, g.Sanitized,
		); err != nil {
			return errors.Wrap(err, "cannot insert release secondary genre")
		}
	}
	return nil
}

func replaceReleaseLabels(tx *sql.Tx, r Release) error {
	if _, err := tx.Exec("DELETE FROM releases_labels WHERE release_id = ?", r.ID); err != nil {
		return errors.Wrap(err, "cannot clear release labels")
	}
	for _, lbl := range r.Labels {
		if _, err := tx.Exec(
			"INSERT INTO releases_labels (release_id, label, sanitized) VALUES (?, ?, ?)",
			r.ID, lbl.Name, lbl.Sanitized,
		); err != nil {
			return errors.Wrap(err, "cannot insert release label")
		}
	}
	return nil
}

func replaceReleaseDescriptors(tx *sql.Tx, r Release) error {
	if _, err := tx.Exec("DELETE FROM releases_descriptors WHERE release_id = ?", r.ID); err != nil {
		return errors.Wrap(err, "cannot clear release descriptors")
	}
	for _, d := range r.Descriptors {
		if _, err := tx.Exec(
			"INSERT INTO releases_descriptors (release_id, descriptor) VALUES (?, ?)",
			r.ID, d,
		); err != nil {
			return errors.Wrap(err, "cannot insert release descriptor")
		}
	}
	return nil
}

// evictMissing removes releases (and, transitively via foreign keys,
// tracks) whose source_path was not observed during this cycle's
// enumeration, per spec.md §4.G "Eviction of stale releases/tracks/
// manifests happens at the end of the cycle against the set of paths
// observed during enumeration." rules_engine_fts (schema.go) is a separate
// FTS5 virtual table with no FK to tracks, so its rows for an evicted
// release's tracks are deleted explicitly here rather than relying on the
// ON DELETE CASCADE that only covers the tracks table itself.
func evictMissing(tx *sql.Tx, observedDirs []string) error {
	rows, err := tx.Query("SELECT id, source_path FROM releases")
	if err != nil {
		return errors.Wrap(err, "cannot list releases for eviction")
	}
	observed := map[string]bool{}
	for _, d := range observedDirs {
		observed[d] = true
	}

	var stale []string
	for rows.Next() {
		var id, path string
		if err := rows.Scan(&id, &path); err != nil {
			rows.Close()
			return err
		}
		if !observed[path] {
			stale = append(stale, id)
		}
	}
	rows.Close()

	for _, id := range stale {
		trackRows, err := tx.Query("SELECT id FROM tracks WHERE release_id = ?", id)
		if err != nil {
			return errors.Wrapf(err, "cannot list tracks of evicted release '%s'", id)
		}
		var trackIDs []string
		for trackRows.Next() {
			var trackID string
			if err := trackRows.Scan(&trackID); err != nil {
				trackRows.Close()
				return err
			}
			trackIDs = append(trackIDs, trackID)
		}
		trackRows.Close()

		for _, trackID := range trackIDs {
			if err := DeleteTrackFTS(tx, trackID); err != nil {
				return errors.Wrapf(err, "cannot evict FTS row for track '%s'", trackID)
			}
		}

		if _, err := tx.Exec("DELETE FROM releases WHERE id = ?", id); err != nil {
			return errors.Wrapf(err, "cannot evict stale release '%s'", id)
		}
	}
	return nil
}

// writeCollageRows upserts a collage's row and replaces its member rows,
// mirroring replaceReleaseGenres' delete-then-insert style. Called on every
// cascade scan of a collage manifest, not only when ScanCollage found its
// description_meta stale, since membership (and thus collages_releases)
// can change without any description text changing.
func writeCollageRows(tx *sql.Tx, c Collage) error {
	if _, err := tx.Exec(
		`INSERT INTO collages (name, mtime) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET mtime = excluded.mtime`,
		c.Name, c.Mtime,
	); err != nil {
		return errors.Wrapf(err, "cannot upsert collage '%s'", c.Name)
	}

	if _, err := tx.Exec("DELETE FROM collages_releases WHERE collage_name = ?", c.Name); err != nil {
		return errors.Wrapf(err, "cannot clear members of collage '%s'", c.Name)
	}
	for _, m := range c.Members {
		if _, err := tx.Exec(
			`INSERT INTO collages_releases (collage_name, release_id, position, missing, description_meta)
			 VALUES (?, ?, ?, ?, ?)`,
			c.Name, m.ReleaseID, m.Position, boolToInt(m.Missing), m.DescriptionMeta,
		); err != nil {
			return errors.Wrapf(err, "cannot insert member of collage '%s'", c.Name)
		}
	}
	return nil
}

// writePlaylistRows is writeCollageRows' playlist analogue.
func writePlaylistRows(tx *sql.Tx, p Playlist) error {
	if _, err := tx.Exec(
		`INSERT INTO playlists (name, mtime, cover_path) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET mtime = excluded.mtime, cover_path = excluded.cover_path`,
		p.Name, p.Mtime, nullableString(p.CoverPath),
	); err != nil {
		return errors.Wrapf(err, "cannot upsert playlist '%s'", p.Name)
	}

	if _, err := tx.Exec("DELETE FROM playlists_tracks WHERE playlist_name = ?", p.Name); err != nil {
		return errors.Wrapf(err, "cannot clear members of playlist '%s'", p.Name)
	}
	for _, m := range p.Members {
		if _, err := tx.Exec(
			`INSERT INTO playlists_tracks (playlist_name, track_id, position, missing, description_meta)
			 VALUES (?, ?, ?, ?, ?)`,
			p.Name, m.TrackID, m.Position, boolToInt(m.Missing), m.DescriptionMeta,
		); err != nil {
			return errors.Wrapf(err, "cannot insert member of playlist '%s'", p.Name)
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableInt(n int) interface{} {
	if n == 0 {
		return nil
	}
	return n
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
