package cache

import (
	"strings"

	"github.com/pkg/errors"
)

// Matcher is the minimal shape the rules engine hands the cache: an FTS
// query string plus a structural post-filter to apply to each candidate.
// spec.md §4.K: "translate into (a) an FTS MATCH query ... then (b) an
// exact post-filter".
type Matcher struct {
	FTSQuery string
	Filter   Filter
}

// CandidateTrackIDs runs the FTS half of a matcher, returning the cheap
// candidate set the rules engine then narrows with an exact post-filter.
func (q *Query) CandidateTrackIDs(ftsQuery string) ([]string, error) {
	rows, err := q.db.Query(
		"SELECT track_id FROM rules_engine_fts WHERE body MATCH ?", ftsQuery,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot run FTS query %q", ftsQuery)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ResolveMatcher runs both phases of a Matcher: FTS candidate lookup, then
// an exact post-filter against each candidate track's release. This is the
// only surface the rules engine (which lives outside this package) is
// meant to call.
func (q *Query) ResolveMatcher(m Matcher) ([]Track, error) {
	candidates, err := q.CandidateTrackIDs(m.FTSQuery)
	if err != nil {
		return nil, err
	}

	var out []Track
	for _, id := range candidates {
		t, err := q.GetTrack(id)
		if err != nil {
			continue
		}
		r, err := q.GetRelease(t.ReleaseID)
		if err != nil {
			continue
		}
		if matchesFilter(t, r, m.Filter) {
			out = append(out, t)
		}
	}
	return out, nil
}

func matchesFilter(t Track, r Release, f Filter) bool {
	if f.ReleaseType != "" && string(r.ReleaseType) != f.ReleaseType {
		return false
	}
	if f.YearMin != 0 && r.Year < f.YearMin {
		return false
	}
	if f.YearMax != 0 && r.Year > f.YearMax {
		return false
	}
	if f.NewOnly && !r.New {
		return false
	}
	if f.Genre != "" && !hasGenre(r, f.Genre) {
		return false
	}
	if f.Artist != "" && !hasArtist(t, r, f.Artist) {
		return false
	}
	if f.Substring != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(f.Substring)) {
		return false
	}
	return true
}

func hasGenre(r Release, genre string) bool {
	for _, g := range r.Genres {
		if strings.EqualFold(g.Name, genre) {
			return true
		}
	}
	return false
}

func hasArtist(t Track, r Release, name string) bool {
	for _, a := range t.Artists {
		if strings.EqualFold(a.Name, name) {
			return true
		}
	}
	for _, a := range r.Artists {
		if strings.EqualFold(a.Name, name) {
			return true
		}
	}
	return false
}
