package core

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned by stores when no session exists for a key.
var ErrSessionNotFound = errors.New("session not found")

// SessionKey identifies a solo session in a store. Solo sessions are keyed
// by session ID plus the persona the user was speaking as.
type SessionKey struct {
	ID        string
	PersonaID string
}

// SessionStore persists solo sessions as whole snapshots. Put replaces the
// stored snapshot wholesale; there are no partial updates. Implementations
// must not retain the passed session after Put returns.
type SessionStore interface {
	Get(ctx context.Context, key SessionKey) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, key SessionKey) error
}

// GroupSessionStore persists group sessions as whole snapshots, keyed by
// session ID alone.
type GroupSessionStore interface {
	GetGroup(ctx context.Context, id string) (*GroupSession, error)
	PutGroup(ctx context.Context, g *GroupSession) error
	DeleteGroup(ctx context.Context, id string) error
}
