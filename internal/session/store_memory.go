package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/victornm/millionaire/internal/errors"
	"github.com/victornm/millionaire/internal/game"
)

// MemoryStore keeps games in process memory. Games are stored encoded, so callers never share
// state with the store and a failed update leaves the stored game untouched.
type MemoryStore struct {
	mu     sync.Mutex
	games  map[string][]byte
	byUser map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games:  make(map[string][]byte),
		byUser: make(map[string][]string),
	}
}

func (s *MemoryStore) Create(_ context.Context, g *game.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[g.ID]; ok {
		return errors.New(errors.CodeAlreadyExists, errors.WithMessagef("game %s already exists", g.ID))
	}

	unfinished, err := s.unfinished(g.UserID)
	if err != nil {
		return err
	}

	if unfinished != nil {
		return errors.New(errors.CodeAlreadyExists, errors.WithMessagef("game %s is in progress", unfinished.ID))
	}

	if err := s.put(g); err != nil {
		return err
	}
	s.byUser[g.UserID] = append(s.byUser[g.UserID], g.ID)

	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*game.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.get(id)
}

func (s *MemoryStore) Update(ctx context.Context, id string, fn func(ctx context.Context, g *game.Game) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.get(id)
	if err != nil {
		return err
	}

	if err := fn(ctx, g); err != nil {
		return err
	}

	return s.put(g)
}

func (s *MemoryStore) Unfinished(_ context.Context, userID string) (*game.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.unfinished(userID)
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]*game.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byUser[userID]
	games := make([]*game.Game, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		g, err := s.get(ids[i])
		if err != nil {
			return nil, err
		}
		g.Questions = nil
		games = append(games, g)
	}

	return games, nil
}

func (s *MemoryStore) unfinished(userID string) (*game.Game, error) {
	for _, id := range s.byUser[userID] {
		g, err := s.get(id)
		if err != nil {
			return nil, err
		}
		if !g.Finished() {
			return g, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) get(id string) (*game.Game, error) {
	b, ok := s.games[id]
	if !ok {
		return nil, errors.NotFound("game %s not found", id)
	}

	var g game.Game
	if err := json.Unmarshal(b, &g); err != nil {
		return nil, fmt.Errorf("decode game %s: %w", id, err)
	}

	return &g, nil
}

func (s *MemoryStore) put(g *game.Game) error {
	b, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode game %s: %w", g.ID, err)
	}

	s.games[g.ID] = b
	return nil
}
