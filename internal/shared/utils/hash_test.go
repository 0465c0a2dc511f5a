package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashFieldsOrderIndependent(t *testing.T) {
	h := DefaultHasher()
	assert.Equal(t, h.HashFields("a", "b", "c"), h.HashFields("c", "a", "b"))
	assert.NotEqual(t, h.HashFields("a", "b"), h.HashFields("a", "c"))
	assert.Len(t, h.Hash([]byte("x")), 64)
}

func TestShort(t *testing.T) {
	assert.Equal(t, "abc", Short("abc"))
	assert.Equal(t, "0123456789ab", Short("0123456789abcdef"))
}
