package tagio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinSemicolon(t *testing.T) {
	assert.Equal(t, "pop;city pop", joinSemicolon([]string{"pop", "city pop"}))
}

func TestJoinSemicolon_Empty(t *testing.T) {
	assert.Equal(t, "", joinSemicolon(nil))
}

func TestJoinSemicolon_Single(t *testing.T) {
	assert.Equal(t, "pop", joinSemicolon([]string{"pop"}))
}
