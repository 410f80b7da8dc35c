package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"gitlab.com/mipimipi/rosecache/internal/config"
	"gitlab.com/mipimipi/rosecache/internal/tagio"
)

// maxCoverDimension bounds the cached thumbnail's longest side; embedded
// covers can be arbitrarily large scans and the cache only needs something
// reasonable to display.
const maxCoverDimension = 1200

// cacheCoverImage extracts the first usable embedded cover picture among
// tracks (in source-path order, the same order listAudioFiles returns) and
// writes a size-bounded, re-encoded JPEG into cfg.CoversDir(), named after
// the release id so repeated scans overwrite the same file in place. It
// returns "" if no track carries an embedded cover.
func cacheCoverImage(cfg *config.Cfg, releaseID string, tracks map[string]trackScanResult) (string, error) {
	var paths []string
	for path := range tracks {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		raw, err := tagio.ExtractCover(path)
		if err != nil || len(raw) == 0 {
			continue
		}

		img, decodeErr := imaging.Decode(bytes.NewReader(raw))
		if decodeErr != nil {
			continue
		}
		if b := img.Bounds(); b.Dx() > maxCoverDimension || b.Dy() > maxCoverDimension {
			img = imaging.Fit(img, maxCoverDimension, maxCoverDimension, imaging.Lanczos)
		}

		if err := os.MkdirAll(cfg.CoversDir(), 0o755); err != nil {
			return "", errors.Wrap(err, "cannot create covers cache directory")
		}
		dest := filepath.Join(cfg.CoversDir(), releaseID+".jpg")
		if err := imaging.Save(img, dest, imaging.JPEGQuality(90)); err != nil {
			return "", errors.Wrapf(err, "cannot save cover thumbnail for release '%s'", releaseID)
		}
		return dest, nil
	}
	return "", nil
}
