package application

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	// ScrollStep is the per-frame offset increment.
	ScrollStep = 0.45
	// FrameInterval approximates one animation frame.
	FrameInterval = time.Second / 60
)

// Viewport is the scrollable wall container.
type Viewport interface {
	ScrollHeight() float64
	ClientHeight() float64
	SetScrollTop(offset float64)
}

// Advance moves offset by step and wraps to 0 once it reaches max.
// The result is always in [0, max) when max > 0.
func Advance(offset, step, max float64) float64 {
	if max <= 0 {
		return 0
	}
	next := offset + step
	if next >= max || next < 0 || math.IsNaN(next) {
		return 0
	}
	return next
}

// ScrollLoop drives one continuous scroll chain per wall.
// Start cancels any chain already running so frames never interleave.
type ScrollLoop struct {
	clock clock.Clock
	step  float64

	// lifecycle serializes Start and Stop so a stop and the following install
	// are one step; mu guards the fields read by the frame chain.
	lifecycle sync.Mutex

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	offset  float64
	running bool
}

// NewScrollLoop returns a stopped loop.
func NewScrollLoop(clk clock.Clock, step float64) *ScrollLoop {
	if clk == nil {
		clk = clock.New()
	}
	if step <= 0 {
		step = ScrollStep
	}
	return &ScrollLoop{clock: clk, step: step}
}

// Start begins a new chain against viewport, stopping the previous one first.
func (l *ScrollLoop) Start(ctx context.Context, viewport Viewport) {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()
	l.stopLocked()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	ticker := l.clock.Ticker(FrameInterval)
	l.mu.Lock()
	l.cancel = cancel
	l.done = done
	l.offset = 0
	l.running = true
	l.mu.Unlock()

	go l.run(ctx, viewport, ticker, done)
}

// Stop cancels the running chain and waits for its last frame.
func (l *ScrollLoop) Stop() {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()
	l.stopLocked()
}

func (l *ScrollLoop) stopLocked() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.running = false
	l.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Running reports whether a chain is active.
func (l *ScrollLoop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running || l.done == nil {
		return false
	}
	select {
	case <-l.done:
		return false
	default:
		return true
	}
}

// Offset returns the last applied offset.
func (l *ScrollLoop) Offset() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.offset
}

func (l *ScrollLoop) run(ctx context.Context, viewport Viewport, ticker *clock.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			max := viewport.ScrollHeight() - viewport.ClientHeight()
			l.mu.Lock()
			l.offset = Advance(l.offset, l.step, max)
			offset := l.offset
			l.mu.Unlock()
			viewport.SetScrollTop(offset)
		}
	}
}
