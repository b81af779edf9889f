package media

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frameN(n int) *image.RGBA {
	f := image.NewRGBA(image.Rect(0, 0, 2, 2))
	f.Pix[0] = uint8(n)
	return f
}

func TestQueueOrdering(t *testing.T) {
	q := newFrameQueue(4)
	for i := 0; i < 3; i++ {
		assert.Zero(t, q.Push(frameN(i)))
	}
	for i := 0; i < 3; i++ {
		f, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, uint8(i), f.Pix[0])
	}
}

func TestQueueDropsOldestWhenFull(t *testing.T) {
	q := newFrameQueue(2)
	assert.Zero(t, q.Push(frameN(0)))
	assert.Zero(t, q.Push(frameN(1)))
	assert.Equal(t, 1, q.Push(frameN(2)))

	f, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, uint8(1), f.Pix[0], "oldest frame was evicted")
	f, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, uint8(2), f.Pix[0])
}

func TestQueueCloseDrainsRemaining(t *testing.T) {
	q := newFrameQueue(4)
	q.Push(frameN(7))
	q.Close()

	f, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, uint8(7), f.Pix[0])

	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestQueueCloseUnblocksPop(t *testing.T) {
	q := newFrameQueue(4)
	got := make(chan bool, 1)
	go func() {
		_, ok := q.Pop()
		got <- ok
	}()
	q.Close()
	assert.False(t, <-got)
}

func TestQueuePushAfterCloseIsNoop(t *testing.T) {
	q := newFrameQueue(4)
	q.Close()
	assert.Zero(t, q.Push(frameN(0)))
	assert.Zero(t, q.Len())
}
