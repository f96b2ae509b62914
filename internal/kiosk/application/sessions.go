package application

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultSessionIdleTTL closes sessions whose client vanished without unmounting.
const DefaultSessionIdleTTL = 30 * time.Minute

// Sessions hosts the mounted kiosk sessions.
type Sessions struct {
	deps      SessionDeps
	cfg       SessionConfig
	idleTTL   time.Duration
	newCamera func() Camera

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessions builds an empty registry. newCamera may be nil to use ClientCamera.
func NewSessions(deps SessionDeps, cfg SessionConfig, idleTTL time.Duration, newCamera func() Camera) *Sessions {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if idleTTL <= 0 {
		idleTTL = DefaultSessionIdleTTL
	}
	if newCamera == nil {
		newCamera = func() Camera { return NewClientCamera() }
	}
	return &Sessions{
		deps:      deps,
		cfg:       cfg,
		idleTTL:   idleTTL,
		newCamera: newCamera,
		sessions:  make(map[string]*Session),
	}
}

// Create mounts a new session.
func (r *Sessions) Create(sel ModeSelection, lang string) *Session {
	id := uuid.NewString()
	session := NewSession(id, sel, lang, r.newCamera(), r.deps, r.cfg)

	r.mu.Lock()
	r.sessions[id] = session
	r.mu.Unlock()

	r.deps.Logger.Info("session created", zap.String("sessionId", id), zap.String("mode", string(sel.Mode)))
	return session
}

// Get returns the session with id and marks it as seen.
func (r *Sessions) Get(id string) (*Session, bool) {
	r.mu.RLock()
	session, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		session.Touch()
	}
	return session, ok
}

// Close unmounts and forgets the session.
func (r *Sessions) Close(id string) bool {
	r.mu.Lock()
	session, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		session.Close()
	}
	return ok
}

// Len returns the number of mounted sessions.
func (r *Sessions) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many were closed.
func (r *Sessions) Sweep() int {
	cutoff := r.deps.Clock.Now().Add(-r.idleTTL)
	var stale []*Session

	r.mu.Lock()
	for id, session := range r.sessions {
		if session.LastSeen().Before(cutoff) {
			stale = append(stale, session)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, session := range stale {
		session.Close()
	}
	if len(stale) > 0 {
		r.deps.Logger.Info("idle sessions closed", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Run sweeps periodically until ctx is done, then closes every session.
func (r *Sessions) Run(ctx context.Context) {
	ticker := r.deps.Clock.Ticker(r.idleTTL / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.CloseAll()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// CloseAll unmounts every session.
func (r *Sessions) CloseAll() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		all = append(all, session)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, session := range all {
		session.Close()
	}
}
