package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, Clamp(5, 0, 10))
	assert.Equal(t, 0, Clamp(-1, 0, 10))
	assert.Equal(t, 10, Clamp(42, 0, 10))
	assert.Equal(t, 1.5, Clamp(1.5, 1.0, 2.0))
}

func TestMinMax(t *testing.T) {
	assert.Equal(t, 2, Min(2, 7))
	assert.Equal(t, 7, Max(2, 7))
	assert.Equal(t, uint32(3), Min(uint32(3), uint32(9)))
}
