package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsString(t *testing.T) {
	assert.True(t, ContainsString([]string{"a", "b"}, "a"))
	assert.False(t, ContainsString([]string{}, "a"))
	assert.False(t, ContainsString([]string{"a", "b"}, "c"))
}

func TestStringSetFromSlice(t *testing.T) {
	set := StringSetFromSlice([]string{"a", "b", "a"})
	assert.Equal(t, 2, len(set))
	assert.True(t, set["a"])
	assert.True(t, set["b"])
	assert.False(t, set["c"])
}

func TestRandomAlphabetString(t *testing.T) {
	s := RandomAlphabetString(8)
	assert.Equal(t, 8, len(s))
	assert.NotEqual(t, s, RandomAlphabetString(8))
}
