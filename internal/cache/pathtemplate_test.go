package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTrackPath_DefaultTemplate(t *testing.T) {
	track := Track{Title: "Golden Hour", TrackNumber: "03"}
	release := Release{Multidisc: false}

	got, err := RenderTrackPath(DefaultPathTemplate, track, release, "fallback")
	require.NoError(t, err)
	assert.Equal(t, "03. Golden Hour", got)
}

func TestRenderTrackPath_MultidiscPrefix(t *testing.T) {
	track := Track{Title: "Golden Hour", TrackNumber: "03", DiscNumber: "2"}
	release := Release{Multidisc: true}

	got, err := RenderTrackPath(DefaultPathTemplate, track, release, "fallback")
	require.NoError(t, err)
	assert.Equal(t, "2-03. Golden Hour", got)
}

func TestRenderTrackPath_FallsBackToOriginalStemWhenEmpty(t *testing.T) {
	track := Track{}
	release := Release{}

	got, err := RenderTrackPath(`{{.Title}}`, track, release, "original-stem")
	require.NoError(t, err)
	assert.Equal(t, "original-stem", got)
}

func TestRenderTrackPath_InvalidTemplate(t *testing.T) {
	_, err := RenderTrackPath(`{{.Nope`, Track{}, Release{}, "x")
	assert.Error(t, err)
}

func TestFormatPosition(t *testing.T) {
	assert.Equal(t, "03", FormatPosition("1", "03"))
	assert.Equal(t, "03", FormatPosition("", "03"))
	assert.Equal(t, "2.03", FormatPosition("2", "03"))
}
