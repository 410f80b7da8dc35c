package tagio

import (
	"strconv"

	mp4tag "github.com/Sorrow446/go-mp4tag"
	"github.com/pkg/errors"
)

// custom freeform MP4 atom names ("----:mean:name") used for the two
// identifiers the cache embeds, following the iTunes freeform-atom
// convention the library exposes through its Custom map.
const (
	mp4RoseTrackID   = "----:com.rosecache:ROSEID"
	mp4RoseReleaseID = "----:com.rosecache:ROSERELEASEID"
	mp4SecondaryGenre = "----:com.rosecache:SECONDARYGENRE"
	mp4Descriptor     = "----:com.rosecache:DESCRIPTOR"
	mp4Label          = "----:com.rosecache:LABEL"
	mp4Edition        = "----:com.rosecache:EDITION"
	mp4CatalogNumber  = "----:com.rosecache:CATALOGNUMBER"
	mp4ReleaseType    = "----:com.rosecache:RELEASETYPE"
	mp4OriginalYear   = "----:com.rosecache:ORIGINALYEAR"
	mp4CompositionYear = "----:com.rosecache:COMPOSITIONYEAR"
	mp4ReleaseArtist  = "----:com.rosecache:RELEASEARTIST"
)

// mp4Variant implements the Tag I/O contract for MP4-atom files (.m4a) via
// github.com/Sorrow446/go-mp4tag.
type mp4Variant struct{}

func (mp4Variant) read(path string) (*Tags, error) {
	mp4, err := mp4tag.Open(path)
	if err != nil {
		return nil, newError(ErrCorruptContainer, path, errors.Wrap(err, "cannot open MP4 atoms"))
	}
	defer mp4.Close()

	tags, err := mp4.Read()
	if err != nil {
		return nil, newError(ErrCorruptContainer, path, errors.Wrap(err, "cannot read MP4 atoms"))
	}

	t := &Tags{
		Title:           tags.Title,
		Album:           tags.Album,
		TrackNumber:     strconv.Itoa(tags.TrackNumber),
		DiscNumber:      strconv.Itoa(tags.DiscNumber),
		Genres:          splitSemicolon(tags.Genre),
		SecondaryGenres: splitSemicolon(tags.Custom[mp4SecondaryGenre]),
		Descriptors:     splitSemicolon(tags.Custom[mp4Descriptor]),
		Labels:          splitSemicolon(tags.Custom[mp4Label]),
		Edition:         tags.Custom[mp4Edition],
		CatalogNumber:   tags.Custom[mp4CatalogNumber],
		ReleaseType:     ReleaseTypeFromString(tags.Custom[mp4ReleaseType]),
		TrackArtists:    ParseArtistString(tags.Artist),
		ReleaseArtists:  ParseArtistString(tags.Custom[mp4ReleaseArtist]),
		RoseTrackID:     tags.Custom[mp4RoseTrackID],
		RoseReleaseID:   tags.Custom[mp4RoseReleaseID],
	}
	t.Year, t.OriginalYear, t.CompositionYear = parseYearTriplet(tags.Year, tags.Custom[mp4OriginalYear], tags.Custom[mp4CompositionYear])

	return t, nil
}

func (mp4Variant) write(path string, t *Tags) error {
	mp4, err := mp4tag.Open(path)
	if err != nil {
		return newError(ErrCorruptContainer, path, errors.Wrap(err, "cannot open MP4 atoms for write"))
	}
	defer mp4.Close()

	custom := map[string]string{
		mp4SecondaryGenre:  joinSemicolon(t.SecondaryGenres),
		mp4Descriptor:      joinSemicolon(t.Descriptors),
		mp4Label:           joinSemicolon(t.Labels),
		mp4Edition:         t.Edition,
		mp4CatalogNumber:   t.CatalogNumber,
		mp4ReleaseType:     string(t.ReleaseType),
		mp4ReleaseArtist:   FormatArtistString(t.ReleaseArtists),
		mp4RoseTrackID:     t.RoseTrackID,
		mp4RoseReleaseID:   t.RoseReleaseID,
	}
	if t.OriginalYear != 0 {
		custom[mp4OriginalYear] = strconv.Itoa(t.OriginalYear)
	}
	if t.CompositionYear != 0 {
		custom[mp4CompositionYear] = strconv.Itoa(t.CompositionYear)
	}

	newTags := &mp4tag.MP4Tags{
		Title:       t.Title,
		Album:       t.Album,
		Artist:      FormatArtistString(t.TrackArtists),
		Genre:       joinSemicolon(t.Genres),
		Year:        strconv.Itoa(t.Year),
		TrackNumber: parseIntToken(t.TrackNumber),
		DiscNumber:  parseIntToken(t.DiscNumber),
		Custom:      custom,
	}

	if err := mp4.Write(newTags, nil); err != nil {
		return newError(ErrIO, path, errors.Wrap(err, "cannot write MP4 atoms"))
	}
	return nil
}

func (mp4Variant) extractCover(path string) ([]byte, error) {
	mp4, err := mp4tag.Open(path)
	if err != nil {
		return nil, newError(ErrCorruptContainer, path, errors.Wrap(err, "cannot open MP4 atoms"))
	}
	defer mp4.Close()

	tags, err := mp4.Read()
	if err != nil {
		return nil, newError(ErrCorruptContainer, path, errors.Wrap(err, "cannot read MP4 atoms"))
	}
	return tags.Cover, nil
}

func joinSemicolon(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	out := ss[0]
	for _, s := range ss[1:] {
		out += ";" + s
	}
	return out
}
