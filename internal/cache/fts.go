package cache

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ftsDelimiter separates fields within one FTS row so that matchers can
// split-and-filter, per spec.md §4.H.
const ftsDelimiter = "☆"

// UpdateTrackFTS deletes the prior FTS row for a track (if any) and inserts
// a fresh one built from the track and its release. Called once per
// inserted/updated track within the orchestrator's write transaction.
func UpdateTrackFTS(tx *sql.Tx, t Track, r Release) error {
	if _, err := tx.Exec("DELETE FROM rules_engine_fts WHERE track_id = ?", t.ID); err != nil {
		return errors.Wrap(err, "cannot delete stale FTS row")
	}

	fields := []string{t.Title, r.Title}
	for _, a := range t.Artists {
		fields = append(fields, a.Name)
	}
	for _, a := range r.Artists {
		fields = append(fields, a.Name)
	}
	for _, g := range r.Genres {
		fields = append(fields, g.Name)
	}
	for _, lbl := range r.Labels {
		fields = append(fields, lbl.Name)
	}
	fields = append(fields, r.Descriptors...)
	fields = append(fields, t.FormattedPosition)
	if r.Year != 0 {
		fields = append(fields, strconv.Itoa(r.Year))
	}

	body := strings.Join(nonEmpty(fields), ftsDelimiter)
	if _, err := tx.Exec(
		"INSERT INTO rules_engine_fts (track_id, body) VALUES (?, ?)",
		t.ID, body,
	); err != nil {
		return errors.Wrap(err, "cannot insert FTS row")
	}
	return nil
}

// DeleteTrackFTS removes a track's FTS row without inserting a replacement,
// used when a track is deleted rather than updated.
func DeleteTrackFTS(tx *sql.Tx, trackID string) error {
	if _, err := tx.Exec("DELETE FROM rules_engine_fts WHERE track_id = ?", trackID); err != nil {
		return errors.Wrap(err, "cannot delete FTS row")
	}
	return nil
}

func nonEmpty(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
