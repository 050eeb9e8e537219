// Package memory provides an in-process session store used when Redis is not
// configured and in tests.
package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/bouquet-checkout/internal/domain/checkout"
)

var _ checkout.Store = (*SessionStore)(nil)

type entry struct {
	data      []byte
	expiresAt time.Time
}

// SessionStore keeps sessions as JSON snapshots so callers never share
// mutable state with the store.
type SessionStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]entry
}

// NewSessionStore creates a store whose sessions expire ttl after their last
// write. A zero ttl disables expiry.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: map[string]entry{},
	}
}

// Create stores a new session.
func (s *SessionStore) Create(_ context.Context, sess *checkout.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.load(sess.ID); ok {
		return errors.Errorf("session %q already exists", sess.ID)
	}
	return s.save(sess)
}

// Get returns a copy of the session.
func (s *SessionStore) Get(_ context.Context, id string) (*checkout.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.load(id)
	if !ok {
		return nil, checkout.ErrSessionNotFound
	}
	return decode(e.data)
}

// Update applies fn under the store lock.
func (s *SessionStore) Update(_ context.Context, id string, fn func(*checkout.Session) error) (*checkout.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.load(id)
	if !ok {
		return nil, checkout.ErrSessionNotFound
	}
	sess, err := decode(e.data)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	if err := s.save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Sweep drops expired sessions. It returns the number removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.sessions {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is done.
func (s *SessionStore) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

// load must be called with s.mu held.
func (s *SessionStore) load(id string) (entry, bool) {
	e, ok := s.sessions[id]
	if !ok {
		return entry{}, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.sessions, id)
		return entry{}, false
	}
	return e, true
}

// save must be called with s.mu held.
func (s *SessionStore) save(sess *checkout.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "marshal session")
	}
	e := entry{data: data}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}
	s.sessions[sess.ID] = e
	return nil
}

func decode(data []byte) (*checkout.Session, error) {
	var sess checkout.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, errors.Wrap(err, "unmarshal session")
	}
	return &sess, nil
}
