package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	l "github.com/sirupsen/logrus"
)

var manifestLog = l.WithFields(l.Fields{"pkg": "cache", "component": "manifest"})

// collageDoc and playlistDoc decode each array-of-tables entry into a
// generic map rather than a fixed struct, so that any key a future version
// (or a hand-edited manifest) adds survives a rewrite untouched — spec.md
// §4.F: "If any computed value differs from the stored value, rewrite the
// manifest (preserving unknown keys)".
type collageDoc struct {
	Releases []map[string]interface{} `toml:"releases"`
}

type playlistDoc struct {
	CoverPath string                   `toml:"cover_path,omitempty"`
	Tracks    []map[string]interface{} `toml:"tracks"`
}

// releaseLookup and trackLookup are the minimal callbacks the manifest
// scanner needs from the query surface to resolve entries and compute
// description_meta strings, without depending on the store package
// directly.
type releaseLookup func(id string) (title string, formattedArtists string, addedAt time.Time, ok bool)
type trackLookup func(id string) (title string, formattedArtists string, ok bool)

// ScanCollage parses one collage manifest, resolves its members, recomputes
// description_meta, and rewrites the file if anything changed.
// spec.md §4.F.
func ScanCollage(path string, lookup releaseLookup) (Collage, bool, error) {
	var doc collageDoc
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return Collage{}, false, errors.Wrapf(err, "cannot parse collage manifest '%s'", path)
	}

	name := manifestName(path)
	dirty := false
	members := make([]CollageMember, 0, len(doc.Releases))

	for pos, entry := range doc.Releases {
		id, _ := entry["uuid"].(string)
		title, artists, addedAt, ok := lookup(id)
		missing := !ok

		// spec.md §6: "[YYYY-MM-DD] artist-string - title".
		expected := ""
		if !missing {
			expected = fmt.Sprintf("[%s] %s - %s", addedAt.Format("2006-01-02"), artists, title)
		}
		if missing {
			if expected == "" {
				prev, _ := entry["description_meta"].(string)
				expected = strings.TrimSuffix(strings.TrimSpace(prev), " {MISSING}") + " {MISSING}"
			} else {
				expected += " {MISSING}"
			}
		}

		stored, _ := entry["description_meta"].(string)
		if stored != expected {
			entry["description_meta"] = expected
			dirty = true
		}

		members = append(members, CollageMember{
			ReleaseID:       id,
			Position:        pos,
			Missing:         missing,
			DescriptionMeta: expected,
		})
	}

	info, err := os.Stat(path)
	if err != nil {
		return Collage{}, false, errors.Wrapf(err, "cannot stat collage manifest '%s'", path)
	}
	mtime := info.ModTime().Unix()

	if dirty {
		if err := writeCollageDoc(path, doc); err != nil {
			manifestLog.WithFields(l.Fields{"path": path, "err": err}).
				Warn("failed to rewrite collage manifest, description_meta left stale")
		} else if info, err := os.Stat(path); err == nil {
			mtime = info.ModTime().Unix()
		}
	}

	return Collage{Name: name, Mtime: mtime, Members: members}, dirty, nil
}

// ScanPlaylist is ScanCollage's playlist-manifest analogue.
func ScanPlaylist(path string, lookup trackLookup) (Playlist, bool, error) {
	var doc playlistDoc
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return Playlist{}, false, errors.Wrapf(err, "cannot parse playlist manifest '%s'", path)
	}

	name := manifestName(path)
	dirty := false
	members := make([]PlaylistMember, 0, len(doc.Tracks))

	for pos, entry := range doc.Tracks {
		id, _ := entry["track_uuid"].(string)
		title, artists, ok := lookup(id)
		missing := !ok

		expected := ""
		if !missing {
			expected = fmt.Sprintf("%s - %s", artists, title)
		}
		if missing {
			if expected == "" {
				prev, _ := entry["description_meta"].(string)
				expected = strings.TrimSuffix(strings.TrimSpace(prev), " {MISSING}") + " {MISSING}"
			} else {
				expected += " {MISSING}"
			}
		}

		stored, _ := entry["description_meta"].(string)
		if stored != expected {
			entry["description_meta"] = expected
			dirty = true
		}

		members = append(members, PlaylistMember{
			TrackID:         id,
			Position:        pos,
			Missing:         missing,
			DescriptionMeta: expected,
		})
	}

	info, err := os.Stat(path)
	if err != nil {
		return Playlist{}, false, errors.Wrapf(err, "cannot stat playlist manifest '%s'", path)
	}
	mtime := info.ModTime().Unix()

	if dirty {
		if err := writePlaylistDoc(path, doc); err != nil {
			manifestLog.WithFields(l.Fields{"path": path, "err": err}).
				Warn("failed to rewrite playlist manifest, description_meta left stale")
		} else if info, err := os.Stat(path); err == nil {
			mtime = info.ModTime().Unix()
		}
	}

	return Playlist{Name: name, Mtime: mtime, CoverPath: doc.CoverPath, Members: members}, dirty, nil
}

func writeCollageDoc(path string, doc collageDoc) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "cannot open collage manifest '%s' for rewrite", path)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(doc)
}

func writePlaylistDoc(path string, doc playlistDoc) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "cannot open playlist manifest '%s' for rewrite", path)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(doc)
}

func manifestName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ListManifestFiles returns every ".toml" file directly inside dir, sorted
// for deterministic scan order.
func ListManifestFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "cannot list manifest directory '%s'", dir)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}
