package tagio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFromPath(t *testing.T) {
	cases := map[string]Format{
		"/music/a.mp3":  FormatMP3,
		"/music/B.M4A":  FormatM4A,
		"/music/c.flac": FormatFLAC,
		"/music/d.ogg":  FormatOgg,
		"/music/e.opus": FormatOpus,
	}
	for path, want := range cases {
		got, ok := FormatFromPath(path)
		assert.True(t, ok, path)
		assert.Equal(t, want, got, path)
	}
}

func TestFormatFromPath_Unsupported(t *testing.T) {
	_, ok := FormatFromPath("/music/cover.jpg")
	assert.False(t, ok)
}

func TestSupports(t *testing.T) {
	assert.True(t, Supports(".flac"))
	assert.True(t, Supports(".OPUS"))
	assert.False(t, Supports(".wav"))
}

func TestReleaseTypeFromString(t *testing.T) {
	assert.Equal(t, ReleaseAlbum, ReleaseTypeFromString("Album"))
	assert.Equal(t, ReleaseDJMix, ReleaseTypeFromString("djmix"))
	assert.Equal(t, ReleaseUnknown, ReleaseTypeFromString("not-a-type"))
	assert.Equal(t, ReleaseUnknown, ReleaseTypeFromString(""))
}

func TestParseIntToken(t *testing.T) {
	assert.Equal(t, 3, parseIntToken("3/12"))
	assert.Equal(t, 12, parseIntToken("12"))
	assert.Equal(t, 0, parseIntToken("A1"))
	assert.Equal(t, 0, parseIntToken(""))
}

func TestError_UnwrapAndMessage(t *testing.T) {
	base := assert.AnError
	err := newError(ErrIO, "/music/a.mp3", base)
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "/music/a.mp3")
}
