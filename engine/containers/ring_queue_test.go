package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueueFIFO(t *testing.T) {
	q := NewRingQueue[int](3)
	assert.True(t, q.IsEmpty())

	require.NoError(t, q.Enqueue(1))
	require.NoError(t, q.Enqueue(2))
	require.NoError(t, q.Enqueue(3))
	assert.True(t, q.IsFull())
	assert.Equal(t, 3, q.Len())

	assert.Error(t, q.Enqueue(4))

	v, err := q.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	// The freed slot wraps around.
	require.NoError(t, q.Enqueue(4))
	for _, want := range []int{2, 3, 4} {
		v, err := q.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}

	_, err = q.Dequeue()
	assert.Error(t, err)
}
