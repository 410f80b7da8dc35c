package tagio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseYearTriplet(t *testing.T) {
	y, oy, cy := parseYearTriplet("2023", "1998", "")
	assert.Equal(t, 2023, y)
	assert.Equal(t, 1998, oy)
	assert.Equal(t, 0, cy)
}

func TestSplitSemicolon_TrimsAndDropsEmpty(t *testing.T) {
	got := splitSemicolon(" pop ; ; city pop")
	assert.Equal(t, []string{"pop", "city pop"}, got)
}

func TestSplitSemicolon_Empty(t *testing.T) {
	assert.Nil(t, splitSemicolon(""))
}

func TestFilterRole_PassesEntriesThrough(t *testing.T) {
	entries := []ArtistEntry{{Name: "Suzume", Role: RoleMain}, {Name: "Kyoko", Role: RoleGuest}}
	assert.Equal(t, entries, filterRole(entries))
}
