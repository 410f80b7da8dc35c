package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestScanCollage_ResolvesAndRewritesStaleDescription(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "favorites.toml", `
[[releases]]
uuid = "r1"
description_meta = "[stale] old - old"
extra_future_key = "keep me"
`)

	addedAt := time.Date(2023, time.March, 14, 0, 0, 0, 0, time.UTC)
	lookup := func(id string) (string, string, time.Time, bool) {
		if id == "r1" {
			return "Harvest Moon", "Suzume", addedAt, true
		}
		return "", "", time.Time{}, false
	}

	collage, dirty, err := ScanCollage(path, lookup)
	require.NoError(t, err)
	assert.True(t, dirty)
	require.Len(t, collage.Members, 1)
	assert.False(t, collage.Members[0].Missing)
	assert.Equal(t, "[2023-03-14] Suzume - Harvest Moon", collage.Members[0].DescriptionMeta)

	rewritten, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(rewritten), "keep me")
	assert.Contains(t, string(rewritten), "2023-03-14")
}

func TestScanCollage_MarksMissingWithoutDeleting(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "favorites.toml", `
[[releases]]
uuid = "gone"
description_meta = ""
`)

	lookup := func(id string) (string, string, time.Time, bool) { return "", "", time.Time{}, false }

	collage, _, err := ScanCollage(path, lookup)
	require.NoError(t, err)
	require.Len(t, collage.Members, 1)
	assert.True(t, collage.Members[0].Missing)
	assert.Contains(t, collage.Members[0].DescriptionMeta, "{MISSING}")
}

func TestScanCollage_NoRewriteWhenUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "favorites.toml", `
[[releases]]
uuid = "r1"
description_meta = "[2023-03-14] Suzume - Harvest Moon"
`)

	addedAt := time.Date(2023, time.March, 14, 0, 0, 0, 0, time.UTC)
	lookup := func(id string) (string, string, time.Time, bool) {
		return "Harvest Moon", "Suzume", addedAt, true
	}

	_, dirty, err := ScanCollage(path, lookup)
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestScanPlaylist_ResolvesAndPreservesCoverPath(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "chill.toml", `
cover_path = "cover.jpg"

[[tracks]]
track_uuid = "t1"
description_meta = "old"
`)

	lookup := func(id string) (string, string, bool) {
		if id == "t1" {
			return "Golden Hour", "Suzume", true
		}
		return "", "", false
	}

	playlist, dirty, err := ScanPlaylist(path, lookup)
	require.NoError(t, err)
	assert.True(t, dirty)
	assert.Equal(t, "cover.jpg", playlist.CoverPath)
	require.Len(t, playlist.Members, 1)
	assert.Equal(t, "Suzume - Golden Hour", playlist.Members[0].DescriptionMeta)
}

func TestListManifestFiles_SkipsNonTOMLAndMissingDir(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "a.toml", "")
	writeTempFile(t, dir, "notes.txt", "")

	files, err := ListManifestFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.toml", filepath.Base(files[0]))

	missing, err := ListManifestFiles(filepath.Join(dir, "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}
