package fcversion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	assert.Equal(t, "2.3.0", String(230))
	assert.Equal(t, "2.4.1", String(241))
	assert.Equal(t, "0.0.0", String(0))
	assert.Equal(t, "2.5.5", String(255))
}

func TestSplit(t *testing.T) {
	major, minor, patch := Split(213)
	assert.Equal(t, 2, major)
	assert.Equal(t, 1, minor)
	assert.Equal(t, 3, patch)
}
