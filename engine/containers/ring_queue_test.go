package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueueOrder(t *testing.T) {
	q := NewRingQueue[string](3)
	assert.True(t, q.IsEmpty())
	assert.Equal(t, 3, q.Cap())

	require.NoError(t, q.Enqueue("a"))
	require.NoError(t, q.Enqueue("b"))
	require.NoError(t, q.Enqueue("c"))
	assert.True(t, q.IsFull())
	assert.ErrorIs(t, q.Enqueue("d"), ErrQueueFull)

	v, err := q.Peek()
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	v, err = q.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	// wraps around the backing array
	require.NoError(t, q.Enqueue("d"))
	assert.Equal(t, 3, q.Len())

	var got []string
	for !q.IsEmpty() {
		v, err := q.Dequeue()
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []string{"b", "c", "d"}, got)
}

func TestRingQueueEmpty(t *testing.T) {
	q := NewRingQueue[*int](0)
	assert.Equal(t, 1, q.Cap())

	v, err := q.Dequeue()
	assert.ErrorIs(t, err, ErrQueueEmpty)
	assert.Nil(t, v)

	_, err = q.Peek()
	assert.ErrorIs(t, err, ErrQueueEmpty)
}
