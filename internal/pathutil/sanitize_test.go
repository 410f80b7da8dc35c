package pathutil_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/mipimipi/rosecache/internal/pathutil"
)

func TestSanitizeFilename_ReplacesIllegalChars(t *testing.T) {
	got := pathutil.SanitizeFilename("AC/DC: Back in Black", ".flac", 180)
	assert.NotContains(t, got, "/")
	assert.True(t, strings.HasSuffix(got, ".flac"))
}

func TestSanitizeDirname_DotsAndDotDot(t *testing.T) {
	assert.Equal(t, "_", pathutil.SanitizeDirname(".", 180))
	assert.Equal(t, "_", pathutil.SanitizeDirname("..", 180))
	assert.Equal(t, "_", pathutil.SanitizeDirname("", 180))
}

func TestSanitizeDirname_TrimsLeadingTrailingDotsAndSpace(t *testing.T) {
	got := pathutil.SanitizeDirname("  Square One.  ", 180)
	assert.Equal(t, "Square One", got)
}

func TestSanitizeFilename_NeverExceedsByteBudget(t *testing.T) {
	long := strings.Repeat("a", 500)
	got := pathutil.SanitizeFilename(long, ".flac", 32)
	assert.LessOrEqual(t, len(got), 32)
	assert.True(t, strings.HasSuffix(got, ".flac"))
}

func TestSanitizeFilename_TruncatesOnUTF8Boundary(t *testing.T) {
	// each "é" below is two UTF-8 bytes; a byte-budget that lands mid
	// code-point must back off to the previous boundary instead of
	// producing invalid UTF-8.
	name := strings.Repeat("é", 20)
	got := pathutil.SanitizeFilename(name, ".mp3", 15)
	require.True(t, strings.HasSuffix(got, ".mp3"))
	base := strings.TrimSuffix(got, ".mp3")
	assert.True(t, isValidUTF8(base))
}

func TestWithCollisionSuffix_DeterministicAndFits(t *testing.T) {
	base := pathutil.SanitizeFilename("Track One", "", 180)
	s2 := pathutil.WithCollisionSuffix(base, ".flac", 2, 180)
	s3 := pathutil.WithCollisionSuffix(base, ".flac", 3, 180)
	assert.Contains(t, s2, "[2]")
	assert.Contains(t, s3, "[3]")
	assert.NotEqual(t, s2, s3)
}

func TestWithCollisionSuffix_FitsBudgetWhenBaseIsLong(t *testing.T) {
	base := strings.Repeat("x", 200)
	got := pathutil.WithCollisionSuffix(base, ".flac", 2, 32)
	assert.LessOrEqual(t, len(got), 32)
}

func isValidUTF8(s string) bool {
	for _, r := range s {
		if r == '�' {
			return false
		}
	}
	return true
}
