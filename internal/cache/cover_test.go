package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/mipimipi/rosecache/internal/config"
)

func TestCacheCoverImage_NoEmbeddedCoverReturnsEmptyPath(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Cfg{CacheDir: dir}

	// Neither track is a real tagged audio file, so ExtractCover fails
	// for both (unsupported format / read error) and is skipped: the
	// function must report "no cover found" rather than erroring out.
	tracks := map[string]trackScanResult{
		filepath.Join(dir, "a.mp3"): {},
		filepath.Join(dir, "b.flac"): {},
	}

	path, err := cacheCoverImage(cfg, "01234567-89ab-7def-8000-000000000001", tracks)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestCacheCoverImage_UnknownExtensionSkipped(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Cfg{CacheDir: dir}

	tracks := map[string]trackScanResult{
		filepath.Join(dir, "notes.txt"): {},
	}

	path, err := cacheCoverImage(cfg, "01234567-89ab-7def-8000-000000000002", tracks)
	require.NoError(t, err)
	assert.Empty(t, path)
}
