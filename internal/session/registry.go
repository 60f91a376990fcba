package session

import (
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by Registry.Get for unknown or expired IDs.
var ErrNotFound = errors.New("session not found")

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 24 * time.Hour

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithTTL sets the idle lifetime of a session. Non-positive values are ignored.
func WithTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithRegistryClock overrides the time source used for expiry.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// entry pairs a session with the last time it was used.
type entry struct {
	sess *Session
	seen time.Time
}

// Registry keeps live sessions in memory, keyed by Session.ID.
// Sessions idle for longer than the TTL are evicted on Create, Get and Prune.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	engine   Starter
	board    Recorder
	ttl      time.Duration
	now      func() time.Time
}

// NewRegistry constructs an empty Registry.
func NewRegistry(engine Starter, board Recorder, opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions: make(map[string]*entry),
		engine:   engine,
		board:    board,
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// TTL reports the idle lifetime applied to sessions.
func (r *Registry) TTL() time.Duration { return r.ttl }

// Create starts a session for player and registers it.
func (r *Registry) Create(player string) (*Session, error) {
	s, err := New(r.engine, r.board, player)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	now := r.now()
	r.pruneLocked(now)
	r.sessions[s.ID] = &entry{sess: s, seen: now}
	r.mu.Unlock()
	return s, nil
}

// Get returns a live session and marks it as used.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	e, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.expired(e, now) {
		delete(r.sessions, id)
		return nil, ErrNotFound
	}
	e.seen = now
	return e.sess, nil
}

// Delete drops a session. Unknown IDs are ignored.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Prune evicts every expired session and returns how many were removed.
func (r *Registry) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pruneLocked(r.now())
}

// Len reports the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) expired(e *entry, now time.Time) bool {
	return now.Sub(e.seen) > r.ttl
}

func (r *Registry) pruneLocked(now time.Time) int {
	n := 0
	for id, e := range r.sessions {
		if r.expired(e, now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}
