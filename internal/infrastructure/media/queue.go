package media

import (
	"image"
	"sync"
)

// frameQueue sits between capture and encode. It is bounded by the
// latency budget: when the encoder falls behind, the oldest frame is
// dropped so the stream stays current instead of buffering without
// bound.
type frameQueue struct {
	mu     sync.Mutex
	frames []*image.RGBA
	cap    int
	notify chan struct{}
	closed bool
}

func newFrameQueue(capacity int) *frameQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &frameQueue{
		cap:    capacity,
		notify: make(chan struct{}, 1),
	}
}

// Push enqueues a frame, evicting the oldest when full. Returns the
// number of frames dropped (0 or 1).
func (q *frameQueue) Push(f *image.RGBA) int {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return 0
	}
	dropped := 0
	if len(q.frames) >= q.cap {
		q.frames = q.frames[1:]
		dropped = 1
	}
	q.frames = append(q.frames, f)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return dropped
}

// Pop dequeues the oldest frame, blocking until one is available or the
// queue closes empty.
func (q *frameQueue) Pop() (*image.RGBA, bool) {
	for {
		q.mu.Lock()
		if len(q.frames) > 0 {
			f := q.frames[0]
			q.frames = q.frames[1:]
			q.mu.Unlock()
			return f, true
		}
		if q.closed {
			q.mu.Unlock()
			return nil, false
		}
		q.mu.Unlock()
		<-q.notify
	}
}

// Close wakes any blocked Pop; queued frames are still drained. The
// notify channel is never closed so a racing Push stays safe.
func (q *frameQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *frameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}
