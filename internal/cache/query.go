package cache

import (
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"gitlab.com/mipimipi/rosecache/internal/store"
	"gitlab.com/mipimipi/rosecache/internal/tagio"
)

// Filter is the structural predicate the query surface accepts, per
// spec.md §4.I ("not a rules-DSL matcher").
type Filter struct {
	Artist      string
	Genre       string
	Label       string
	ReleaseType string
	YearMin     int
	YearMax     int
	NewOnly     bool
	Substring   string
}

// Query wraps a read connection and implements the stable read API of
// spec.md §4.I.
type Query struct {
	db *store.DB
}

func NewQuery(db *store.DB) *Query { return &Query{db: db} }

func (q *Query) GetRelease(id string) (Release, error) {
	row := q.db.QueryRow(`SELECT id, source_path, added_at, sidecar_mtime, title, release_type,
		release_year, original_year, composition_year, multidisc, is_new, formatted_artists, cover_image_path
		FROM releases WHERE id = ?`, id)

	var r Release
	var addedAt string
	var releaseType string
	var multidisc, isNew int
	var coverPath sql.NullString
	var year, origYear, compYear sql.NullInt64
	if err := row.Scan(&r.ID, &r.SourcePath, &addedAt, &r.SidecarMtime, &r.Title, &releaseType,
		&year, &origYear, &compYear, &multidisc, &isNew, &r.FormattedArtists, &coverPath); err != nil {
		return Release{}, errors.Wrapf(err, "cannot get release '%s'", id)
	}
	r.AddedAt, _ = time.Parse(time.RFC3339, addedAt)
	r.ReleaseType = tagio.ReleaseTypeFromString(releaseType)
	r.Year = int(year.Int64)
	r.OriginalYear = int(origYear.Int64)
	r.CompositionYear = int(compYear.Int64)
	r.Multidisc = multidisc != 0
	r.New = isNew != 0
	r.CoverImagePath = coverPath.String
	return r, nil
}

func (q *Query) ListReleases(f Filter) ([]Release, error) {
	where, args := buildReleaseWhere(f)
	query := "SELECT id FROM releases" + where
	rows, err := q.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "cannot list releases")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "cannot scan release id")
		}
		ids = append(ids, id)
	}

	out := make([]Release, 0, len(ids))
	for _, id := range ids {
		r, err := q.GetRelease(id)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (q *Query) ListReleasesByCollage(name string) ([]Release, error) {
	rows, err := q.db.Query(`SELECT release_id FROM collages_releases
		WHERE collage_name = ? AND missing = 0 ORDER BY position`, name)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list releases for collage '%s'", name)
	}
	defer rows.Close()

	var out []Release
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		r, err := q.GetRelease(id)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (q *Query) GetTrack(id string) (Track, error) {
	row := q.db.QueryRow(`SELECT id, release_id, source_path, source_mtime, virtual_filename, title,
		track_number, disc_number, formatted_position, duration_seconds, formatted_artists
		FROM tracks WHERE id = ?`, id)

	var t Track
	if err := row.Scan(&t.ID, &t.ReleaseID, &t.SourcePath, &t.SourceMtime, &t.VirtualFilename, &t.Title,
		&t.TrackNumber, &t.DiscNumber, &t.FormattedPosition, &t.Duration, &t.FormattedArtists); err != nil {
		return Track{}, errors.Wrapf(err, "cannot get track '%s'", id)
	}

	artists, err := q.trackArtists(id)
	if err != nil {
		return Track{}, err
	}
	t.Artists = artists
	return t, nil
}

// ListTracks implements spec.md §4.I's list_tracks(filter?), sharing Filter
// with ListReleases: artist and title-substring match the track itself,
// while genre/label/release-type/year/new-only constrain through the
// owning release.
func (q *Query) ListTracks(f Filter) ([]Track, error) {
	where, args := buildTrackWhere(f)
	query := "SELECT id FROM tracks" + where
	rows, err := q.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "cannot list tracks")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "cannot scan track id")
		}
		ids = append(ids, id)
	}

	out := make([]Track, 0, len(ids))
	for _, id := range ids {
		t, err := q.GetTrack(id)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// trackArtists loads a track's artist roster, ordered by (role, name).
func (q *Query) trackArtists(trackID string) ([]Artist, error) {
	rows, err := q.db.Query(`SELECT name, sanitized, role, is_alias FROM tracks_artists
		WHERE track_id = ? ORDER BY role, name`, trackID)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list artists for track '%s'", trackID)
	}
	defer rows.Close()

	var out []Artist
	for rows.Next() {
		var a Artist
		var role string
		var isAlias int
		if err := rows.Scan(&a.Name, &a.Sanitized, &role, &isAlias); err != nil {
			return nil, err
		}
		a.Role = tagio.ArtistRole(role)
		a.IsAlias = isAlias != 0
		out = append(out, a)
	}
	return out, nil
}

func (q *Query) ListTracksByPlaylist(name string) ([]Track, error) {
	rows, err := q.db.Query(`SELECT track_id FROM playlists_tracks
		WHERE playlist_name = ? AND missing = 0 ORDER BY position`, name)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list tracks for playlist '%s'", name)
	}
	defer rows.Close()

	var out []Track
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		tr, err := q.GetTrack(id)
		if err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, nil
}

func (q *Query) ListCollages() ([]string, error)   { return q.listNames("collages") }
func (q *Query) ListPlaylists() ([]string, error)  { return q.listNames("playlists") }
func (q *Query) ListArtists() ([]string, error)    { return q.listDistinct("releases_artists", "name") }
func (q *Query) ListGenres() ([]string, error)     { return q.listDistinct("releases_genres", "genre") }
func (q *Query) ListLabels() ([]string, error)     { return q.listDistinct("releases_labels", "label") }
func (q *Query) ListDescriptors() ([]string, error) {
	return q.listDistinct("releases_descriptors", "descriptor")
}

func (q *Query) ArtistExists(name string) (bool, error) { return q.exists("releases_artists", "name", name) }
func (q *Query) GenreExists(name string) (bool, error)  { return q.exists("releases_genres", "genre", name) }
func (q *Query) LabelExists(name string) (bool, error)  { return q.exists("releases_labels", "label", name) }
func (q *Query) DescriptorExists(name string) (bool, error) {
	return q.exists("releases_descriptors", "descriptor", name)
}

func (q *Query) listNames(table string) ([]string, error) {
	rows, err := q.db.Query("SELECT name FROM " + table + " ORDER BY name")
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list %s", table)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, nil
}

func (q *Query) listDistinct(table, column string) ([]string, error) {
	rows, err := q.db.Query("SELECT DISTINCT " + column + " FROM " + table + " ORDER BY " + column)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list distinct %s from %s", column, table)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (q *Query) exists(table, column, value string) (bool, error) {
	var dummy int
	err := q.db.QueryRow("SELECT 1 FROM "+table+" WHERE "+column+" = ? LIMIT 1", value).Scan(&dummy)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "cannot check existence in %s", table)
	}
	return true, nil
}

func buildReleaseWhere(f Filter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if f.Genre != "" {
		clauses = append(clauses, "id IN (SELECT release_id FROM releases_genres WHERE genre = ?)")
		args = append(args, f.Genre)
	}
	if f.Artist != "" {
		clauses = append(clauses, "id IN (SELECT release_id FROM releases_artists WHERE name = ?)")
		args = append(args, f.Artist)
	}
	if f.Label != "" {
		clauses = append(clauses, "id IN (SELECT release_id FROM releases_labels WHERE label = ?)")
		args = append(args, f.Label)
	}
	if f.ReleaseType != "" {
		clauses = append(clauses, "release_type = ?")
		args = append(args, f.ReleaseType)
	}
	if f.YearMin != 0 {
		clauses = append(clauses, "release_year >= ?")
		args = append(args, f.YearMin)
	}
	if f.YearMax != 0 {
		clauses = append(clauses, "release_year <= ?")
		args = append(args, f.YearMax)
	}
	if f.NewOnly {
		clauses = append(clauses, "is_new = 1")
	}
	if f.Substring != "" {
		clauses = append(clauses, "title LIKE ?")
		args = append(args, "%"+f.Substring+"%")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func buildTrackWhere(f Filter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if f.Artist != "" {
		clauses = append(clauses, "id IN (SELECT track_id FROM tracks_artists WHERE name = ?)")
		args = append(args, f.Artist)
	}
	if f.Substring != "" {
		clauses = append(clauses, "title LIKE ?")
		args = append(args, "%"+f.Substring+"%")
	}

	releaseWhere, releaseArgs := buildReleaseWhere(Filter{
		Genre:       f.Genre,
		Label:       f.Label,
		ReleaseType: f.ReleaseType,
		YearMin:     f.YearMin,
		YearMax:     f.YearMax,
		NewOnly:     f.NewOnly,
	})
	if releaseWhere != "" {
		clauses = append(clauses, "release_id IN (SELECT id FROM releases"+releaseWhere+")")
		args = append(args, releaseArgs...)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
