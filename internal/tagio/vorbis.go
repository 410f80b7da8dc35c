package tagio

import (
	"strconv"
	"strings"
)

// vorbis comment field names the cache owns. Everything else read from a
// Vorbis-comment block (FLAC, Ogg, Opus) is preserved verbatim on write,
// satisfying the round-trip invariant of spec.md §4.A.
const (
	vcTitle           = "TITLE"
	vcAlbum           = "ALBUM"
	vcArtist          = "ARTIST"
	vcAlbumArtist     = "ALBUMARTIST"
	vcGenre           = "GENRE"
	vcSecondaryGenre  = "SECONDARYGENRE"
	vcDescriptor      = "DESCRIPTOR"
	vcLabel           = "LABEL"
	vcEdition         = "EDITION"
	vcCatalogNumber   = "CATALOGNUMBER"
	vcReleaseType     = "RELEASETYPE"
	vcYear            = "DATE"
	vcOriginalYear    = "ORIGINALYEAR"
	vcCompositionYear = "COMPOSITIONYEAR"
	vcTrackNumber     = "TRACKNUMBER"
	vcDiscNumber      = "DISCNUMBER"
	vcRoseTrackID     = "ROSEID"
	vcRoseReleaseID   = "ROSERELEASEID"
)

var managedVorbisKeys = map[string]bool{
	vcTitle: true, vcAlbum: true, vcArtist: true, vcAlbumArtist: true,
	vcGenre: true, vcSecondaryGenre: true, vcDescriptor: true, vcLabel: true,
	vcEdition: true, vcCatalogNumber: true, vcReleaseType: true, vcYear: true,
	vcOriginalYear: true, vcCompositionYear: true, vcTrackNumber: true,
	vcDiscNumber: true, vcRoseTrackID: true, vcRoseReleaseID: true,
}

// splitVorbisField splits a raw "KEY=value" Vorbis comment into its
// upper-cased key and its value. Malformed entries (no '=') are returned
// with an empty key so callers treat them as unmanaged and preserve them.
func splitVorbisField(raw string) (key, value string) {
	idx := strings.IndexByte(raw, '=')
	if idx < 0 {
		return "", raw
	}
	return strings.ToUpper(raw[:idx]), raw[idx+1:]
}

// tagsToVorbisFields renders t's Rosé-owned fields as "KEY=value" comments,
// using ';'-joined multi-value encoding (spec.md §4.A: Vorbis containers use
// semicolon-joined multi-value tags, not repeated tags or null separators).
func tagsToVorbisFields(t *Tags) []string {
	var out []string
	add := func(key, value string) {
		if value != "" {
			out = append(out, key+"="+value)
		}
	}
	add(vcTitle, t.Title)
	add(vcAlbum, t.Album)
	add(vcArtist, FormatArtistString(t.TrackArtists))
	add(vcAlbumArtist, FormatArtistString(t.ReleaseArtists))
	add(vcGenre, strings.Join(t.Genres, ";"))
	add(vcSecondaryGenre, strings.Join(t.SecondaryGenres, ";"))
	add(vcDescriptor, strings.Join(t.Descriptors, ";"))
	add(vcLabel, strings.Join(t.Labels, ";"))
	add(vcEdition, t.Edition)
	add(vcCatalogNumber, t.CatalogNumber)
	add(vcReleaseType, string(t.ReleaseType))
	if t.Year != 0 {
		add(vcYear, strconv.Itoa(t.Year))
	}
	if t.OriginalYear != 0 {
		add(vcOriginalYear, strconv.Itoa(t.OriginalYear))
	}
	if t.CompositionYear != 0 {
		add(vcCompositionYear, strconv.Itoa(t.CompositionYear))
	}
	add(vcTrackNumber, t.TrackNumber)
	add(vcDiscNumber, t.DiscNumber)
	add(vcRoseTrackID, t.RoseTrackID)
	add(vcRoseReleaseID, t.RoseReleaseID)
	return out
}

// mergeVorbisComments replaces every managed field in existing with the
// fields freshly rendered from t, leaving every unmanaged field untouched
// and in its original relative order; the rendered fields are appended after
// them. Role-specific side tags are not recognised as managed keys, so any
// such field present in existing is kept as it is rather than dropped.
func mergeVorbisComments(existing []string, t *Tags) []string {
	out := make([]string, 0, len(existing)+len(managedVorbisKeys))
	for _, raw := range existing {
		key, _ := splitVorbisField(raw)
		if managedVorbisKeys[key] {
			continue
		}
		out = append(out, raw)
	}
	out = append(out, tagsToVorbisFields(t)...)
	return out
}

// tagsFromVorbisComments parses a raw Vorbis comment list into Tags,
// ignoring (but not losing, since callers keep the raw list around)
// anything outside the managed key set.
func tagsFromVorbisComments(comments []string) *Tags {
	t := &Tags{}
	for _, raw := range comments {
		key, value := splitVorbisField(raw)
		switch key {
		case vcTitle:
			t.Title = value
		case vcAlbum:
			t.Album = value
		case vcArtist:
			t.TrackArtists = ParseArtistString(value)
		case vcAlbumArtist:
			t.ReleaseArtists = ParseArtistString(value)
		case vcGenre:
			t.Genres = splitSemicolon(value)
		case vcSecondaryGenre:
			t.SecondaryGenres = splitSemicolon(value)
		case vcDescriptor:
			t.Descriptors = splitSemicolon(value)
		case vcLabel:
			t.Labels = splitSemicolon(value)
		case vcEdition:
			t.Edition = value
		case vcCatalogNumber:
			t.CatalogNumber = value
		case vcReleaseType:
			t.ReleaseType = ReleaseTypeFromString(value)
		case vcYear:
			t.Year = parseIntToken(value)
		case vcOriginalYear:
			t.OriginalYear = parseIntToken(value)
		case vcCompositionYear:
			t.CompositionYear = parseIntToken(value)
		case vcTrackNumber:
			t.TrackNumber = value
		case vcDiscNumber:
			t.DiscNumber = value
		case vcRoseTrackID:
			t.RoseTrackID = value
		case vcRoseReleaseID:
			t.RoseReleaseID = value
		}
	}
	return t
}
