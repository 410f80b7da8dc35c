package tagio

import (
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/pkg/errors"
)

const (
	txxxRoseTrackID   = "ROSEID"
	txxxRoseReleaseID = "ROSERELEASEID"
)

// mp3Variant implements the Tag I/O contract for ID3v2-tagged files via
// github.com/bogem/id3v2/v2. Custom Rosé identifiers live in TXXX frames
// keyed by description, per spec.md §6.
type mp3Variant struct{}

func (mp3Variant) read(path string) (*Tags, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, newError(ErrCorruptContainer, path, errors.Wrap(err, "cannot open ID3v2 tag"))
	}
	defer tag.Close()

	t := &Tags{
		Title:       tag.Title(),
		Album:       tag.Album(),
		TrackNumber: textFrame(tag, tag.CommonID("Track number/Position in set")),
		DiscNumber:  textFrame(tag, tag.CommonID("Part of a set")),
		ReleaseType: ReleaseTypeFromString(userText(tag, "ROSERELEASETYPE")),
	}
	t.Year, t.OriginalYear, t.CompositionYear = parseYearTriplet(tag.Year(), userText(tag, "ORIGINALYEAR"), userText(tag, "COMPOSITIONYEAR"))
	t.Genres = splitSemicolon(tag.Genre())
	t.SecondaryGenres = splitSemicolon(userText(tag, "SECONDARYGENRE"))
	t.Descriptors = splitSemicolon(userText(tag, "DESCRIPTOR"))
	t.Labels = splitSemicolon(userText(tag, "LABEL"))
	t.Edition = userText(tag, "EDITION")
	t.CatalogNumber = userText(tag, "CATALOGNUMBER")
	t.TrackArtists = ParseArtistString(tag.Artist())
	t.ReleaseArtists = ParseArtistString(userText(tag, "ALBUMARTIST"))
	t.RoseTrackID = userText(tag, txxxRoseTrackID)
	t.RoseReleaseID = userText(tag, txxxRoseReleaseID)

	return t, nil
}

func (mp3Variant) write(path string, t *Tags) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return newError(ErrCorruptContainer, path, errors.Wrap(err, "cannot open ID3v2 tag for write"))
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(t.Title)
	tag.SetAlbum(t.Album)
	tag.SetArtist(FormatArtistString(filterRole(t.TrackArtists)))
	tag.SetGenre(strings.Join(t.Genres, ";"))
	if t.Year != 0 {
		tag.SetYear(strconv.Itoa(t.Year))
	}
	if t.TrackNumber != "" {
		tag.AddTextFrame(tag.CommonID("Track number/Position in set"), tag.DefaultEncoding(), t.TrackNumber)
	}
	if t.DiscNumber != "" {
		tag.AddTextFrame(tag.CommonID("Part of a set"), tag.DefaultEncoding(), t.DiscNumber)
	}

	setUserText(tag, "ALBUMARTIST", FormatArtistString(t.ReleaseArtists))
	setUserText(tag, "SECONDARYGENRE", strings.Join(t.SecondaryGenres, ";"))
	setUserText(tag, "DESCRIPTOR", strings.Join(t.Descriptors, ";"))
	setUserText(tag, "LABEL", strings.Join(t.Labels, ";"))
	setUserText(tag, "EDITION", t.Edition)
	setUserText(tag, "CATALOGNUMBER", t.CatalogNumber)
	setUserText(tag, "ROSERELEASETYPE", string(t.ReleaseType))
	if t.OriginalYear != 0 {
		setUserText(tag, "ORIGINALYEAR", strconv.Itoa(t.OriginalYear))
	}
	if t.CompositionYear != 0 {
		setUserText(tag, "COMPOSITIONYEAR", strconv.Itoa(t.CompositionYear))
	}
	setUserText(tag, txxxRoseTrackID, t.RoseTrackID)
	setUserText(tag, txxxRoseReleaseID, t.RoseReleaseID)

	if err := tag.Save(); err != nil {
		return newError(ErrIO, path, errors.Wrap(err, "cannot save ID3v2 tag"))
	}
	return nil
}

func (mp3Variant) extractCover(path string) ([]byte, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, newError(ErrCorruptContainer, path, errors.Wrap(err, "cannot open ID3v2 tag"))
	}
	defer tag.Close()

	for _, f := range tag.GetFrames(tag.CommonID("Attached picture")) {
		if pic, ok := f.(id3v2.PictureFrame); ok {
			return pic.Picture, nil
		}
	}
	return nil, nil
}

func textFrame(tag *id3v2.Tag, id string) string {
	return tag.GetTextFrame(id).Text
}

func userText(tag *id3v2.Tag, description string) string {
	for _, f := range tag.GetFrames(tag.CommonID("User defined text information frame")) {
		if udtf, ok := f.(id3v2.UserDefinedTextFrame); ok && udtf.Description == description {
			return udtf.Value
		}
	}
	return ""
}

func setUserText(tag *id3v2.Tag, description, value string) {
	tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
		Encoding:    id3v2.EncodingUTF8,
		Description: description,
		Value:       value,
	})
}

func splitSemicolon(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ";") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func filterRole(entries []ArtistEntry) []ArtistEntry {
	return entries
}

func parseYearTriplet(year, original, composition string) (y, oy, cy int) {
	y = parseIntToken(year)
	oy = parseIntToken(original)
	cy = parseIntToken(composition)
	return
}
