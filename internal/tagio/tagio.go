// Package tagio exposes one uniform contract for reading and writing music
// metadata across five audio containers: ID3v2 (.mp3), MP4 atoms (.m4a),
// FLAC + Vorbis comments (.flac), Ogg Vorbis (.ogg) and Opus (.opus).
// spec.md §4.A.
package tagio

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	l "github.com/sirupsen/logrus"
)

var log = l.WithFields(l.Fields{"pkg": "tagio"})

// Format is the closed enumeration of containers the cache understands.
type Format string

// supported container formats
const (
	FormatMP3  Format = "mp3"
	FormatM4A  Format = "m4a"
	FormatFLAC Format = "flac"
	FormatOgg  Format = "ogg"
	FormatOpus Format = "opus"
)

var extToFormat = map[string]Format{
	".mp3":  FormatMP3,
	".m4a":  FormatM4A,
	".flac": FormatFLAC,
	".ogg":  FormatOgg,
	".opus": FormatOpus,
}

// FormatFromPath returns the container format implied by path's extension,
// and false if the extension is not one the cache supports.
func FormatFromPath(path string) (Format, bool) {
	f, ok := extToFormat[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// Supports reports whether ext (including the leading dot, any case) names
// a supported container.
func Supports(ext string) bool {
	_, ok := extToFormat[strings.ToLower(ext)]
	return ok
}

// ReleaseType is the closed enumeration of release types spec.md §3 names.
type ReleaseType string

// release type values
const (
	ReleaseAlbum       ReleaseType = "album"
	ReleaseSingle      ReleaseType = "single"
	ReleaseEP          ReleaseType = "ep"
	ReleaseCompilation ReleaseType = "compilation"
	ReleaseSoundtrack  ReleaseType = "soundtrack"
	ReleaseLive        ReleaseType = "live"
	ReleaseRemix       ReleaseType = "remix"
	ReleaseDJMix       ReleaseType = "djmix"
	ReleaseMixtape     ReleaseType = "mixtape"
	ReleaseOther       ReleaseType = "other"
	ReleaseUnknown     ReleaseType = "unknown"
)

var validReleaseTypes = map[ReleaseType]bool{
	ReleaseAlbum: true, ReleaseSingle: true, ReleaseEP: true,
	ReleaseCompilation: true, ReleaseSoundtrack: true, ReleaseLive: true,
	ReleaseRemix: true, ReleaseDJMix: true, ReleaseMixtape: true,
	ReleaseOther: true, ReleaseUnknown: true,
}

// ReleaseTypeFromString converts a free-form tag value into the closed
// ReleaseType enumeration, falling back to "unknown" for anything else.
func ReleaseTypeFromString(s string) ReleaseType {
	rt := ReleaseType(strings.ToLower(strings.TrimSpace(s)))
	if validReleaseTypes[rt] {
		return rt
	}
	return ReleaseUnknown
}

// ArtistRole is the closed enumeration of roles an artist can hold on a
// release or track (spec.md §3).
type ArtistRole string

// artist roles
const (
	RoleMain     ArtistRole = "main"
	RoleGuest    ArtistRole = "guest"
	RoleRemixer  ArtistRole = "remixer"
	RoleProducer ArtistRole = "producer"
	RoleComposer ArtistRole = "composer"
	RoleDJMixer  ArtistRole = "djmixer"
)

// AllRoles lists every role in a stable order, used whenever the roster must
// be enumerated deterministically (e.g. majority-vote aggregation).
var AllRoles = []ArtistRole{RoleComposer, RoleDJMixer, RoleMain, RoleGuest, RoleRemixer, RoleProducer}

// ArtistEntry is one (name, role) pair in an artist roster.
type ArtistEntry struct {
	Name string
	Role ArtistRole
}

// Tags is the union of fields the cache cares about, independent of
// container. Round-trip preservation of anything not named here is each
// format variant's responsibility (spec.md §4.A invariant).
type Tags struct {
	Title            string
	Album            string
	ReleaseType      ReleaseType
	Year             int
	OriginalYear     int
	CompositionYear  int
	TrackNumber      string
	DiscNumber       string
	Duration         int // seconds, read-only
	Genres           []string
	SecondaryGenres  []string
	Descriptors      []string
	Labels           []string
	Edition          string
	CatalogNumber    string
	TrackArtists     []ArtistEntry
	ReleaseArtists   []ArtistEntry
	RoseTrackID      string
	RoseReleaseID    string
}

// Error kinds distinguish the three ways Tag I/O can fail, per spec.md §4.A.
type ErrorKind int

const (
	ErrUnsupportedFormat ErrorKind = iota
	ErrCorruptContainer
	ErrIO
)

// Error wraps an underlying error with its ErrorKind and the file path.
// Callers in this module log and skip a failed file without inspecting Kind.
type Error struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *Error) Error() string {
	return errors.Wrapf(e.Err, "tagio: %s", e.Path).Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// variant is implemented once per container format.
type variant interface {
	read(path string) (*Tags, error)
	write(path string, t *Tags) error
	extractCover(path string) ([]byte, error)
}

var variants = map[Format]variant{
	FormatMP3:  mp3Variant{},
	FormatM4A:  mp4Variant{},
	FormatFLAC: flacVariant{},
	FormatOgg:  oggVariant{container: FormatOgg},
	FormatOpus: oggVariant{container: FormatOpus},
}

// Read loads tags from path, dispatching on its extension.
func Read(path string) (*Tags, error) {
	f, ok := FormatFromPath(path)
	if !ok {
		return nil, newError(ErrUnsupportedFormat, path, errors.Errorf("unsupported extension '%s'", filepath.Ext(path)))
	}
	t, err := variants[f].read(path)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Write persists t's Rosé-owned fields into path, preserving unrelated tags
// already present in the container (spec.md §4.A round-trip invariant).
func Write(path string, t *Tags) error {
	f, ok := FormatFromPath(path)
	if !ok {
		return newError(ErrUnsupportedFormat, path, errors.Errorf("unsupported extension '%s'", filepath.Ext(path)))
	}
	return variants[f].write(path, t)
}

// ExtractCover returns the embedded cover picture's raw bytes, or nil if the
// container has none.
func ExtractCover(path string) ([]byte, error) {
	f, ok := FormatFromPath(path)
	if !ok {
		return nil, newError(ErrUnsupportedFormat, path, errors.Errorf("unsupported extension '%s'", filepath.Ext(path)))
	}
	return variants[f].extractCover(path)
}

// parseIntToken extracts the leading numeric run of a track/disc-number
// string, tolerating non-numeric tokens like "3/12" or "A1" per spec.md §3
// ("may contain non-numeric tokens").
func parseIntToken(s string) int {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9') {
		i++
	}
	if i == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0
	}
	return n
}
