package cache

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"gitlab.com/mipimipi/rosecache/internal/config"
)

// sidecarDoc mirrors the fixed three-key schema of spec.md §6's release
// sidecar. Unlike manifests, the sidecar schema never grows unknown keys, so
// a plain typed struct (rather than a key-preserving map) is sufficient.
type sidecarDoc struct {
	Release sidecarRelease `toml:"release"`
}

type sidecarRelease struct {
	ID      string `toml:"id"`
	AddedAt string `toml:"added_at"`
	New     bool   `toml:"new"`
}

// locateSidecar scans dir for a file matching ".rose.{uuid}.toml". It
// returns the sole match, or ok=false if none exists, or an error if more
// than one is found (spec.md §4.E step 1, §7 fail-fast on duplicate
// sidecar).
func locateSidecar(dir string) (path, id string, ok bool, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", false, errors.Wrapf(err, "cannot list release directory '%s'", dir)
	}

	var matches []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, config.SidecarPrefix) && strings.HasSuffix(name, config.SidecarSuffix) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 0:
		return "", "", false, nil
	case 1:
		name := matches[0]
		uuid := strings.TrimSuffix(strings.TrimPrefix(name, config.SidecarPrefix), config.SidecarSuffix)
		return filepath.Join(dir, name), uuid, true, nil
	default:
		return "", "", false, errors.Errorf("duplicate release sidecar in '%s': %v", dir, matches)
	}
}

// readSidecar parses the sidecar at path, verifying its embedded id matches
// the uuid encoded in its filename (spec.md §6: "must equal filename uuid").
func readSidecar(path, expectedID string) (addedAt time.Time, isNew bool, err error) {
	var doc sidecarDoc
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return time.Time{}, false, errors.Wrapf(err, "cannot parse sidecar '%s'", path)
	}
	if doc.Release.ID != expectedID {
		return time.Time{}, false, errors.Errorf("sidecar '%s' id %q does not match filename id %q", path, doc.Release.ID, expectedID)
	}
	t, err := time.Parse(time.RFC3339, doc.Release.AddedAt)
	if err != nil {
		return time.Time{}, false, errors.Wrapf(err, "cannot parse added_at in sidecar '%s'", path)
	}
	return t, doc.Release.New, nil
}

// writeSidecar (re)writes the sidecar file for a release directory.
func writeSidecar(dir, id string, addedAt time.Time, isNew bool) (path string, mtime int64, err error) {
	path = filepath.Join(dir, config.SidecarPrefix+id+config.SidecarSuffix)

	doc := sidecarDoc{Release: sidecarRelease{
		ID:      id,
		AddedAt: addedAt.UTC().Format(time.RFC3339),
		New:     isNew,
	}}

	f, err := os.Create(path)
	if err != nil {
		return "", 0, errors.Wrapf(err, "cannot create sidecar '%s'", path)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(doc); err != nil {
		return "", 0, errors.Wrapf(err, "cannot write sidecar '%s'", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", 0, errors.Wrapf(err, "cannot stat sidecar '%s'", path)
	}
	return path, info.ModTime().Unix(), nil
}
