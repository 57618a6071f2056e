package session

import (
	"context"
	"sync"

	"github.com/IronBullXD/RoleplayNexus-sub001/core"
)

// InMemoryStore is a volatile store keeping solo and group sessions in
// process-local maps. It is safe for concurrent access. Sessions are cloned
// on both Get and Put so callers can never mutate stored state through a
// retained pointer.
type InMemoryStore struct {
	mu     sync.RWMutex
	solo   map[core.SessionKey]*core.Session
	groups map[string]*core.GroupSession
}

var (
	_ core.SessionStore      = (*InMemoryStore)(nil)
	_ core.GroupSessionStore = (*InMemoryStore)(nil)
)

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		solo:   make(map[core.SessionKey]*core.Session),
		groups: make(map[string]*core.GroupSession),
	}
}

// Get returns a clone of the stored session for key.
func (s *InMemoryStore) Get(_ context.Context, key core.SessionKey) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.solo[key]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// Put replaces the stored snapshot for the session's key.
func (s *InMemoryStore) Put(_ context.Context, sess *core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.solo[sess.Key()] = sess.Clone()
	return nil
}

// Delete removes the stored session for key, if any.
func (s *InMemoryStore) Delete(_ context.Context, key core.SessionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.solo[key]; !ok {
		return core.ErrSessionNotFound
	}
	delete(s.solo, key)
	return nil
}

// GetGroup returns a clone of the stored group session.
func (s *InMemoryStore) GetGroup(_ context.Context, id string) (*core.GroupSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return g.Clone(), nil
}

// PutGroup replaces the stored snapshot for the group session's ID.
func (s *InMemoryStore) PutGroup(_ context.Context, g *core.GroupSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.ID] = g.Clone()
	return nil
}

// DeleteGroup removes the stored group session, if any.
func (s *InMemoryStore) DeleteGroup(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[id]; !ok {
		return core.ErrSessionNotFound
	}
	delete(s.groups, id)
	return nil
}
