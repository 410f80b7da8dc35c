// Package store owns the relational schema and the low-level SQLite
// connection policy. It has no knowledge of scanning or orchestration; it
// only knows how to open a database, apply the schema, and hand out
// connections per spec.md §4.D.
package store

// schemaVersion is bumped whenever schema changes; a mismatch against the
// value recorded in the database's user_version pragma triggers a full
// rebuild rather than a migration (spec.md §4.D: "the cache is never
// migrated").
const schemaVersion = 1

// schemaDDL is applied verbatim against a freshly created database. All
// schema changes go through this single script.
const schemaDDL = `
CREATE TABLE releases (
	id               TEXT PRIMARY KEY,
	source_path      TEXT NOT NULL UNIQUE,
	added_at         TEXT NOT NULL,
	sidecar_mtime    INTEGER NOT NULL,
	title            TEXT NOT NULL,
	release_type     TEXT NOT NULL CHECK (release_type IN (
		'album','single','ep','compilation','soundtrack','live',
		'remix','djmix','mixtape','other','unknown'
	)),
	release_year     INTEGER,
	original_year    INTEGER,
	composition_year INTEGER,
	multidisc        INTEGER NOT NULL DEFAULT 0,
	is_new           INTEGER NOT NULL DEFAULT 1,
	formatted_artists TEXT NOT NULL DEFAULT '',
	cover_image_path TEXT
);

CREATE TABLE tracks (
	id                TEXT PRIMARY KEY,
	release_id        TEXT NOT NULL REFERENCES releases(id) ON DELETE CASCADE,
	source_path       TEXT NOT NULL UNIQUE,
	source_mtime      INTEGER NOT NULL,
	virtual_filename  TEXT NOT NULL,
	title             TEXT NOT NULL,
	track_number      TEXT,
	disc_number       TEXT,
	formatted_position TEXT NOT NULL DEFAULT '',
	duration_seconds  INTEGER NOT NULL DEFAULT 0,
	formatted_artists TEXT NOT NULL DEFAULT '',
	UNIQUE (release_id, virtual_filename)
);
CREATE INDEX tracks_release_idx ON tracks(release_id, disc_number, track_number);

CREATE TABLE releases_artists (
	release_id  TEXT NOT NULL REFERENCES releases(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	sanitized   TEXT NOT NULL,
	role        TEXT NOT NULL CHECK (role IN (
		'main','guest','remixer','producer','composer','djmixer'
	)),
	is_alias    INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (release_id, name, role)
);

CREATE TABLE tracks_artists (
	track_id  TEXT NOT NULL REFERENCES tracks(id) ON DELETE CASCADE,
	name      TEXT NOT NULL,
	sanitized TEXT NOT NULL,
	role      TEXT NOT NULL CHECK (role IN (
		'main','guest','remixer','producer','composer','djmixer'
	)),
	is_alias  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (track_id, name, role)
);

CREATE TABLE releases_genres (
	release_id TEXT NOT NULL REFERENCES releases(id) ON DELETE CASCADE,
	genre      TEXT NOT NULL,
	sanitized  TEXT NOT NULL,
	PRIMARY KEY (release_id, genre)
);

CREATE TABLE releases_secondary_genres (
	release_id TEXT NOT NULL REFERENCES releases(id) ON DELETE CASCADE,
	genre      TEXT NOT NULL,
	sanitized  TEXT NOT NULL,
	PRIMARY KEY (release_id, genre)
);

CREATE TABLE releases_descriptors (
	release_id TEXT NOT NULL REFERENCES releases(id) ON DELETE CASCADE,
	descriptor TEXT NOT NULL,
	PRIMARY KEY (release_id, descriptor)
);

CREATE TABLE releases_labels (
	release_id TEXT NOT NULL REFERENCES releases(id) ON DELETE CASCADE,
	label      TEXT NOT NULL,
	sanitized  TEXT NOT NULL,
	PRIMARY KEY (release_id, label)
);

CREATE TABLE collages (
	name  TEXT PRIMARY KEY,
	mtime INTEGER NOT NULL
);

CREATE TABLE collages_releases (
	collage_name TEXT NOT NULL REFERENCES collages(name) ON DELETE CASCADE,
	release_id   TEXT NOT NULL,
	position     INTEGER NOT NULL,
	missing      INTEGER NOT NULL DEFAULT 0,
	description_meta TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (collage_name, position)
);

CREATE TABLE playlists (
	name  TEXT PRIMARY KEY,
	mtime INTEGER NOT NULL,
	cover_path TEXT
);

CREATE TABLE playlists_tracks (
	playlist_name TEXT NOT NULL REFERENCES playlists(name) ON DELETE CASCADE,
	track_id      TEXT NOT NULL,
	position      INTEGER NOT NULL,
	missing       INTEGER NOT NULL DEFAULT 0,
	description_meta TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (playlist_name, position)
);

CREATE TABLE locks (
	name       TEXT PRIMARY KEY,
	valid_until INTEGER NOT NULL
);

CREATE VIRTUAL TABLE rules_engine_fts USING fts5(
	track_id UNINDEXED,
	body,
	tokenize = 'unicode61 separators "☆"'
);
`

// schemaStatements returns schemaDDL split into individual statements, which
// ensureSchema (conn.go) executes on a fresh database before stamping its
// user_version with schemaVersion.
func schemaStatements() []string {
	return splitStatements(schemaDDL)
}

// splitStatements splits a DDL script on top-level semicolons. It is naive
// (no string-literal awareness) but schemaDDL contains no semicolons inside
// string literals, so this is safe for this fixed script.
func splitStatements(script string) []string {
	var out []string
	start := 0
	for i := 0; i < len(script); i++ {
		if script[i] == ';' {
			stmt := trimSpace(script[start:i])
			if stmt != "" {
				out = append(out, stmt)
			}
			start = i + 1
		}
	}
	return out
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
