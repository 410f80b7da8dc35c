package cache

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

// DefaultPathTemplate renders a disc/track-prefixed title, the common case
// for single-disc releases; multidisc releases get a disc prefix too.
const DefaultPathTemplate = `{{if .Multidisc}}{{.DiscNumber}}-{{end}}{{.TrackNumber}}. {{.Title}}`

// templateData is the set of fields a path template may reference.
type templateData struct {
	Title            string
	TrackNumber      string
	DiscNumber       string
	Multidisc        bool
	FormattedArtists string
	ReleaseTitle     string
	ReleaseYear      int
}

// RenderTrackPath renders tmplText against one track, falling back to the
// track's original filename stem when rendering produces an empty string
// (spec.md §4.E: "Where template rendering produces an empty segment: fall
// back to the track's original filename stem").
func RenderTrackPath(tmplText string, t Track, r Release, origStem string) (string, error) {
	tmpl, err := template.New("path").Parse(tmplText)
	if err != nil {
		return "", errors.Wrap(err, "invalid path template")
	}

	data := templateData{
		Title:            t.Title,
		TrackNumber:      t.TrackNumber,
		DiscNumber:       t.DiscNumber,
		Multidisc:        r.Multidisc,
		FormattedArtists: t.FormattedArtists,
		ReleaseTitle:     r.Title,
		ReleaseYear:      r.Year,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, "cannot render path template")
	}

	rendered := strings.TrimSpace(buf.String())
	if rendered == "" {
		return origStem, nil
	}
	return rendered, nil
}

// FormatPosition renders the disc/track position string used for both
// Track.FormattedPosition and FTS indexing, e.g. "2.03" or "03"; disc 1
// (or no disc number) carries no disc prefix.
func FormatPosition(discNumber, trackNumber string) string {
	if discNumber == "" || discNumber == "1" {
		return trackNumber
	}
	return discNumber + "." + trackNumber
}
