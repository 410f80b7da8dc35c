// Package config loads and validates the rosecache configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pkg/errors"
)

// ValueKey represents keys used to stash config in a context.Context.
type ValueKey string

// KeyCfg is the context key under which the loaded Cfg is stored.
const KeyCfg ValueKey = "cfg"

// default names of the sibling directories holding collage/playlist manifests
const (
	DefaultCollagesDirName  = "!collages"
	DefaultPlaylistsDirName = "!playlists"
)

// SidecarPrefix and SidecarSuffix are the prefix/suffix a release sidecar
// file name must match: ".rose.<uuid>.toml"
const (
	SidecarPrefix = ".rose."
	SidecarSuffix = ".toml"
)

// Cfg holds the configuration of the cache subsystem.
type Cfg struct {
	MusicSourceDir   string            `json:"music_source_dir"`
	CacheDir         string            `json:"cache_dir"`
	CollagesDirName  string            `json:"collages_dir_name"`
	PlaylistsDirName string            `json:"playlists_dir_name"`
	PathTemplate     string            `json:"path_template"`
	MaxFilenameBytes int               `json:"max_filename_bytes"`
	TagValueSep      string            `json:"tag_value_separator"`
	WorkerCount      int               `json:"worker_count"`
	LockLeaseSeconds int               `json:"lock_lease_seconds"`
	ArtistAliases    map[string]string `json:"artist_aliases"`
	LogDir           string            `json:"log_dir"`
	LogLevel         string            `json:"log_level"`
}

// defaults applied after loading, mirroring fields a user is allowed to omit.
func (c *Cfg) defaults() {
	if c.CollagesDirName == "" {
		c.CollagesDirName = DefaultCollagesDirName
	}
	if c.PlaylistsDirName == "" {
		c.PlaylistsDirName = DefaultPlaylistsDirName
	}
	if c.MaxFilenameBytes == 0 {
		c.MaxFilenameBytes = 180
	}
	if c.TagValueSep == "" {
		c.TagValueSep = ";"
	}
	if c.WorkerCount == 0 {
		c.WorkerCount = runtime.NumCPU() / 2
		if c.WorkerCount < 1 {
			c.WorkerCount = 1
		}
	}
	if c.LockLeaseSeconds == 0 {
		c.LockLeaseSeconds = 300
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir()
	}
}

// DefaultCacheDir resolves the default cache directory, honoring
// XDG_CACHE_HOME as spec.md §6 requires.
func DefaultCacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "rose")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "rose-cache")
	}
	return filepath.Join(home, ".cache", "rose")
}

// DatabasePath returns the path of the SQLite cache file within CacheDir.
func (c *Cfg) DatabasePath() string {
	return filepath.Join(c.CacheDir, "cache.sqlite3")
}

// CollagesDir returns the absolute path of the collages manifest directory.
func (c *Cfg) CollagesDir() string {
	return filepath.Join(c.MusicSourceDir, c.CollagesDirName)
}

// PlaylistsDir returns the absolute path of the playlists manifest directory.
func (c *Cfg) PlaylistsDir() string {
	return filepath.Join(c.MusicSourceDir, c.PlaylistsDirName)
}

// CoversDir returns the absolute path of the cover-image thumbnail cache,
// a subdirectory of CacheDir rather than of the music source tree since
// thumbnails are derived data, not part of the library itself.
func (c *Cfg) CoversDir() string {
	return filepath.Join(c.CacheDir, "covers")
}

// ScanInterval is how often the orchestrator is triggered when run as a
// daemon loop; it has no bearing on a single on-demand scan invocation.
func (c *Cfg) ScanInterval() time.Duration {
	return 60 * time.Second
}

// Load reads the configuration file at path and returns the parsed config
// with defaults applied, but not yet validated.
func Load(path string) (cfg Cfg, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Cfg{}, errors.Wrapf(err, "config file '%s' couldn't be read", path)
	}
	if err = json.Unmarshal(b, &cfg); err != nil {
		return Cfg{}, errors.Wrapf(err, "config file '%s' couldn't be parsed", path)
	}
	cfg.defaults()
	return cfg, nil
}

// Validate checks that the configuration is complete and internally
// consistent. It mirrors the teacher's chained per-section Validate style.
func (c *Cfg) Validate() error {
	if err := validateDir(c.MusicSourceDir, "music_source_dir"); err != nil {
		return err
	}
	if c.MusicSourceDir == "" {
		return fmt.Errorf("music_source_dir must be set")
	}
	if c.MaxFilenameBytes <= 0 {
		return fmt.Errorf("max_filename_bytes must be > 0")
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("worker_count must be > 0")
	}
	if c.LockLeaseSeconds <= 0 {
		return fmt.Errorf("lock_lease_seconds must be > 0")
	}
	if err := c.validateArtistAliases(); err != nil {
		return err
	}
	return nil
}

// validateArtistAliases rejects alias cycles (spec.md §9: "Cyclic aliasing
// in artist configuration is a validation error caught at config load").
func (c *Cfg) validateArtistAliases() error {
	for start := range c.ArtistAliases {
		seen := map[string]bool{start: true}
		cur := start
		for {
			next, ok := c.ArtistAliases[cur]
			if !ok {
				break
			}
			if seen[next] {
				return fmt.Errorf("artist alias cycle detected starting at '%s'", start)
			}
			seen[next] = true
			cur = next
		}
	}
	return nil
}

func validateDir(dir, name string) error {
	if dir == "" {
		return fmt.Errorf("no %s configured", name)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return errors.Wrapf(err, "cannot access %s '%s'", name, dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s '%s' is not a directory", name, dir)
	}
	return nil
}

// ResolveArtistAlias follows the alias chain for name to its canonical
// target. It is the single authority the scanner consults to derive the
// alias-of-another-artist flag (spec.md §3 invariant: "it is never
// authoritative" w.r.t. the source tree, only derived at scan time).
func (c *Cfg) ResolveArtistAlias(name string) (canonical string, isAlias bool) {
	cur := name
	visited := map[string]bool{}
	for {
		target, ok := c.ArtistAliases[cur]
		if !ok || visited[cur] {
			break
		}
		visited[cur] = true
		cur = target
		isAlias = true
	}
	return cur, isAlias
}
