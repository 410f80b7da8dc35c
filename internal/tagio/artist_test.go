package tagio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gitlab.com/mipimipi/rosecache/internal/tagio"
)

func TestParseArtistString_MainOnly(t *testing.T) {
	got := tagio.ParseArtistString("BLACKPINK")
	assert.Equal(t, []tagio.ArtistEntry{{Name: "BLACKPINK", Role: tagio.RoleMain}}, got)
}

func TestParseArtistString_AllRoles(t *testing.T) {
	s := "Max Martin performed by Avicii pres. Ariana Grande feat. Nicki Minaj remixed by Zedd produced by Ryan Tedder"
	got := tagio.ParseArtistString(s)

	want := map[tagio.ArtistRole]string{
		tagio.RoleComposer: "Max Martin",
		tagio.RoleDJMixer:  "Avicii",
		tagio.RoleMain:     "Ariana Grande",
		tagio.RoleGuest:    "Nicki Minaj",
		tagio.RoleRemixer:  "Zedd",
		tagio.RoleProducer: "Ryan Tedder",
	}
	for _, e := range got {
		assert.Equal(t, want[e.Role], e.Name)
	}
	assert.Len(t, got, 6)
}

func TestParseArtistString_UnknownExtensionFallsIntoMain(t *testing.T) {
	got := tagio.ParseArtistString("Artist One vs. Artist Two; Artist Three")
	assert.Len(t, got, 2)
	for _, e := range got {
		assert.Equal(t, tagio.RoleMain, e.Role)
	}
}

func TestFormatArtistString_RoundTrip(t *testing.T) {
	entries := []tagio.ArtistEntry{
		{Name: "Ariana Grande", Role: tagio.RoleMain},
		{Name: "Nicki Minaj", Role: tagio.RoleGuest},
	}
	s := tagio.FormatArtistString(entries)
	assert.Equal(t, "Ariana Grande feat. Nicki Minaj", s)

	reparsed := tagio.ParseArtistString(s)
	assert.ElementsMatch(t, entries, reparsed)
}

func TestFormatArtistString_EmptyRoster(t *testing.T) {
	assert.Equal(t, "", tagio.FormatArtistString(nil))
}
