package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

type Options struct {
	IdleTTL time.Duration
	Now     func() time.Time
}

type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	idleTTL  time.Duration
	now      func() time.Time
}

func NewStore(opts Options) *Store {
	idleTTL := opts.IdleTTL
	if idleTTL <= 0 {
		idleTTL = 2 * time.Hour
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Store{
		sessions: make(map[string]*Session),
		idleTTL:  idleTTL,
		now:      now,
	}
}

// Create starts a session under a fresh random id.
func (s *Store) Create() string {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.createLocked(id)
	return id
}

// With runs fn on the session with exclusive access. Only one operation per
// session is in flight at a time; others wait.
func (s *Store) With(id string, fn func(*Session) error) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		sess.LastActivity = s.now()
	}
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	sess.op.Lock()
	defer sess.op.Unlock()
	return fn(sess)
}

// WithOrCreate is With for callers that own their ids, such as chat ids.
func (s *Store) WithOrCreate(id string, fn func(*Session) error) error {
	s.mu.Lock()
	if _, ok := s.sessions[id]; !ok {
		s.createLocked(id)
	}
	s.mu.Unlock()
	return s.With(id, fn)
}

// Status reads the session's status line without waiting for a running
// operation.
func (s *Store) Status(id string) (string, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return "", ErrNotFound
	}
	return sess.Status(), nil
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// Evict drops sessions idle for longer than the TTL and returns how many went.
func (s *Store) Evict() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.idleTTL)
	n := 0
	for id, sess := range s.sessions {
		if sess.LastActivity.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// RunJanitor evicts idle sessions every interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Evict()
		}
	}
}

func (s *Store) createLocked(id string) *Session {
	sess := &Session{
		ID:           id,
		LastActivity: s.now(),
	}
	s.sessions[id] = sess
	return sess
}
