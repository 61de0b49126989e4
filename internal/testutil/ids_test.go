package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedIDGenerator_ReturnsSameID(t *testing.T) {
	gen := NewFixedIDGenerator("search-123")

	assert.Equal(t, "search-123", gen.NewID())
	assert.Equal(t, "search-123", gen.NewID())
}

func TestFixedIDGenerator_EmptyIDDefault(t *testing.T) {
	assert.Equal(t, "test-search-default", NewFixedIDGenerator("").NewID())
}
