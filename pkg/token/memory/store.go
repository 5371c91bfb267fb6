// Package memory provides an in-memory token.Store for tests and local
// development.
package memory

import (
	"context"
	"sync"

	"github.com/dmitrymomot/authkit/pkg/token"
)

type key struct {
	email   string
	purpose token.Purpose
}

// Store keeps tokens in process memory. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	tokens map[key]token.Token
}

// New creates an empty in-memory token store.
func New() *Store {
	return &Store{tokens: make(map[key]token.Token)}
}

func (s *Store) Save(ctx context.Context, t token.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[key{t.Email, t.Purpose}] = t
	return nil
}

func (s *Store) FindByValue(ctx context.Context, value string, purpose token.Purpose) (*token.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tokens {
		if t.Purpose == purpose && t.Value == value {
			found := t
			return &found, nil
		}
	}
	return nil, token.ErrTokenNotFound
}

func (s *Store) FindByEmail(ctx context.Context, email string, purpose token.Purpose) (*token.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tokens[key{email, purpose}]; ok {
		found := t
		return &found, nil
	}
	return nil, token.ErrTokenNotFound
}

func (s *Store) DeleteByEmail(ctx context.Context, email string, purpose token.Purpose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, key{email, purpose})
	return nil
}

func (s *Store) Delete(ctx context.Context, t token.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{t.Email, t.Purpose}
	// a stale handle must not take out a superseding token
	if cur, ok := s.tokens[k]; ok && cur.Value == t.Value {
		delete(s.tokens, k)
	}
	return nil
}

// Compile-time interface assertion
var _ token.Store = (*Store)(nil)
