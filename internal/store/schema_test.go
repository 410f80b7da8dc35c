package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaStatements_CoversEveryTable(t *testing.T) {
	stmts := schemaStatements()
	assert.NotEmpty(t, stmts)

	wantTables := []string{
		"releases", "tracks", "releases_artists", "tracks_artists",
		"releases_genres", "releases_secondary_genres", "releases_descriptors",
		"releases_labels", "collages", "collages_releases", "playlists",
		"playlists_tracks", "locks", "rules_engine_fts",
	}
	joined := strings.Join(stmts, "\n")
	for _, table := range wantTables {
		assert.Contains(t, joined, table, "schema should mention table %q", table)
	}
}

func TestSchemaStatements_NoEmptyStatements(t *testing.T) {
	for _, stmt := range schemaStatements() {
		assert.NotEmpty(t, strings.TrimSpace(stmt))
	}
}

func TestTrimSpace(t *testing.T) {
	assert.Equal(t, "foo", trimSpace("  \n\tfoo\t\n "))
	assert.Equal(t, "", trimSpace("   "))
}
