// Package cache implements the scanning, aggregation and query surface that
// turns a source music tree into the relational cache described by
// spec.md §3-4: releases and tracks derived from Tag I/O, collages and
// playlists derived from TOML manifests, all reconciled by a single
// orchestration cycle per run.
package cache

import (
	"time"

	"gitlab.com/mipimipi/rosecache/internal/tagio"
)

// Artist is one (name, role, alias) entry in a release's or track's roster.
type Artist struct {
	Name      string
	Sanitized string
	Role      tagio.ArtistRole
	IsAlias   bool
}

// Release mirrors spec.md §3's Release entity.
type Release struct {
	ID               string
	SourcePath       string
	AddedAt          time.Time
	SidecarMtime     int64
	Title            string
	ReleaseType      tagio.ReleaseType
	Year             int
	OriginalYear     int
	CompositionYear  int
	Multidisc        bool
	New              bool
	FormattedArtists string
	CoverImagePath   string

	Genres          []GenreEntry
	SecondaryGenres []GenreEntry
	Labels          []LabelEntry
	Descriptors     []string
	Artists         []Artist
}

// GenreEntry pairs a genre's display form with its sanitized variant, per
// spec.md §3 ("genres (ordered, with sanitized variant)").
type GenreEntry struct {
	Name      string
	Sanitized string
}

// LabelEntry is the label-set analogue of GenreEntry.
type LabelEntry struct {
	Name      string
	Sanitized string
}

// Track mirrors spec.md §3's Track entity.
type Track struct {
	ID                string
	ReleaseID         string
	SourcePath        string
	SourceMtime       int64
	VirtualFilename   string
	Title             string
	TrackNumber       string
	DiscNumber        string
	FormattedPosition string
	Duration          int
	FormattedArtists  string
	Artists           []Artist
}

// CollageMember is one entry in a collage manifest.
type CollageMember struct {
	ReleaseID       string
	Position        int
	Missing         bool
	DescriptionMeta string
}

// Collage mirrors spec.md §3's Collage entity.
type Collage struct {
	Name    string
	Mtime   int64
	Members []CollageMember
}

// PlaylistMember is one entry in a playlist manifest.
type PlaylistMember struct {
	TrackID         string
	Position        int
	Missing         bool
	DescriptionMeta string
}

// Playlist mirrors spec.md §3's Playlist entity.
type Playlist struct {
	Name      string
	Mtime     int64
	CoverPath string
	Members   []PlaylistMember
}

// ChangeKind distinguishes the ways an entity can change within one scan
// cycle. ChangeUnchanged never reaches a ReleaseChange's TrackChanges; it
// only flows through trackScanResult to say "skip, nothing to re-emit".
type ChangeKind int

const (
	ChangeNew ChangeKind = iota
	ChangeUpdated
	ChangeDeleted
	ChangeUnchanged
)

// TrackChange is one track-level mutation emitted by the release scanner,
// collected by the orchestrator into a single write transaction.
type TrackChange struct {
	Kind  ChangeKind
	Track Track
}

// ReleaseChange is the single change record a release's scan pass produces
// (spec.md §4.E step 9: "a single change record per release carrying all
// inserts/updates/deletes for its tracks and artists/genres/labels/
// descriptors").
type ReleaseChange struct {
	Kind         ChangeKind
	Release      Release
	TrackChanges []TrackChange
}

