package presence

import (
	"context"
	"sync"
)

// MemStore is an in-process Store for single-process deployments and
// tests. State lives only as long as the process; a restart loses all
// presence, which is correct because the connections are gone too.
type MemStore struct {
	mu      sync.RWMutex
	rooms   map[string]map[string]struct{}
	players map[string]Record
}

func NewMemStore() *MemStore {
	return &MemStore{
		rooms:   map[string]map[string]struct{}{},
		players: map[string]Record{},
	}
}

func (s *MemStore) AddMember(_ context.Context, roomID, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.rooms[roomID]
	if !ok {
		members = map[string]struct{}{}
		s.rooms[roomID] = members
	}
	members[playerID] = struct{}{}
	return nil
}

func (s *MemStore) RemoveMember(_ context.Context, roomID, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if members, ok := s.rooms[roomID]; ok {
		delete(members, playerID)
	}
	return nil
}

func (s *MemStore) Members(_ context.Context, roomID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := s.rooms[roomID]
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemStore) RoomCount(_ context.Context, roomID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.rooms[roomID]), nil
}

func (s *MemStore) SetPlayer(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.players[rec.ID] = *rec
	return nil
}

func (s *MemStore) GetPlayer(_ context.Context, playerID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.players[playerID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *MemStore) DeletePlayer(_ context.Context, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.players, playerID)
	return nil
}
