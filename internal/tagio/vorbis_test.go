package tagio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitVorbisField(t *testing.T) {
	key, value := splitVorbisField("ARTIST=Beyoncé")
	assert.Equal(t, "ARTIST", key)
	assert.Equal(t, "Beyoncé", value)
}

func TestSplitVorbisField_CaseInsensitiveKey(t *testing.T) {
	key, _ := splitVorbisField("artist=x")
	assert.Equal(t, "ARTIST", key)
}

func TestSplitVorbisField_Malformed(t *testing.T) {
	key, value := splitVorbisField("no-equals-sign")
	assert.Equal(t, "", key)
	assert.Equal(t, "no-equals-sign", value)
}

func TestMergeVorbisComments_PreservesUnmanagedFields(t *testing.T) {
	existing := []string{
		"TITLE=Old Title",
		"REPLAYGAIN_TRACK_GAIN=-4.5 dB",
		"ENCODER=reference libFLAC 1.3.4",
	}
	tg := &Tags{Title: "New Title"}

	merged := mergeVorbisComments(existing, tg)

	assert.Contains(t, merged, "REPLAYGAIN_TRACK_GAIN=-4.5 dB")
	assert.Contains(t, merged, "ENCODER=reference libFLAC 1.3.4")
	assert.Contains(t, merged, "TITLE=New Title")
	assert.NotContains(t, merged, "TITLE=Old Title")
}

func TestTagsFromVorbisComments_RoundTrip(t *testing.T) {
	tg := &Tags{
		Title:           "Golden Hour",
		Album:           "Harvest Moon",
		Genres:          []string{"pop", "city pop"},
		SecondaryGenres: []string{"chillwave"},
		Year:            2023,
		TrackNumber:     "1",
		DiscNumber:      "1",
		TrackArtists:    []ArtistEntry{{Name: "Suzume", Role: RoleMain}},
		RoseTrackID:     "0191a1a2-0000-7000-8000-000000000001",
	}

	comments := tagsToVorbisFields(tg)
	parsed := tagsFromVorbisComments(comments)

	assert.Equal(t, tg.Title, parsed.Title)
	assert.Equal(t, tg.Album, parsed.Album)
	assert.Equal(t, tg.Genres, parsed.Genres)
	assert.Equal(t, tg.SecondaryGenres, parsed.SecondaryGenres)
	assert.Equal(t, tg.Year, parsed.Year)
	assert.Equal(t, tg.TrackNumber, parsed.TrackNumber)
	assert.Equal(t, tg.RoseTrackID, parsed.RoseTrackID)
	assert.Equal(t, tg.TrackArtists, parsed.TrackArtists)
}
