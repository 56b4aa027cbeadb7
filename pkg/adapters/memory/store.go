package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/crabritto/arbor/pkg/domain"
)

// Store implements ports.TreeStore in memory.
// Safe for concurrent use. Trees are immutable snapshots, so they are stored
// and handed out without copying.
type Store struct {
	data map[string]*domain.Tree
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Tree),
	}
}

// Save replaces the snapshot of a session.
func (s *Store) Save(ctx context.Context, sessionID string, tree *domain.Tree) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = tree
	return nil
}

// Load retrieves the snapshot of a session.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Tree, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tree, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return tree, nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns active sessions, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)
	return sessions, nil
}
