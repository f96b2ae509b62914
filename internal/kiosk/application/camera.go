package application

import (
	"context"
	"sync"
	"sync/atomic"
)

// MediaStream is an open capture stream. Stop must be safe to call more than once.
type MediaStream interface {
	Stop()
}

// Camera opens a capture stream for the Camera screen.
type Camera interface {
	Open(ctx context.Context) (MediaStream, error)
}

// ClientCamera tracks the browser-side stream of one session.
// The snapshot exposes Active so the client starts or stops its getUserMedia tracks.
type ClientCamera struct {
	mu     sync.Mutex
	opened int
	active atomic.Int32
}

// NewClientCamera returns a camera with no open stream.
func NewClientCamera() *ClientCamera {
	return &ClientCamera{}
}

func (c *ClientCamera) Open(context.Context) (MediaStream, error) {
	c.mu.Lock()
	c.opened++
	c.mu.Unlock()
	c.active.Add(1)
	return &clientStream{camera: c}, nil
}

// Active reports whether any stream is still open.
func (c *ClientCamera) Active() bool {
	return c.active.Load() > 0
}

// Opened returns how many streams were opened over the camera lifetime.
func (c *ClientCamera) Opened() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened
}

type clientStream struct {
	camera *ClientCamera
	once   sync.Once
}

func (s *clientStream) Stop() {
	s.once.Do(func() {
		s.camera.active.Add(-1)
	})
}
