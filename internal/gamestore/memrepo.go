package gamestore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/daehyun-kim/chess-review/internal/domain"
)

// memrepo is a development-only in-memory repository used when no DB is
// configured.
type memrepo struct {
	mu sync.RWMutex

	nextID int64
	games  map[int64]*domain.GameRecord
}

func NewMemoryRepository() Repository {
	return &memrepo{games: make(map[int64]*domain.GameRecord)}
}

func (m *memrepo) Close() error { return nil }

func (m *memrepo) InsertGame(ctx context.Context, game *domain.GameRecord) (int64, error) {
	if game == nil {
		return 0, ErrNilGame
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	copy := *game
	copy.ID = id
	if copy.CreatedAt.IsZero() {
		copy.CreatedAt = time.Now()
	}
	m.games[id] = &copy
	return id, nil
}

func (m *memrepo) GetGame(ctx context.Context, id int64) (*domain.GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok || g == nil {
		return nil, ErrGameNotFound
	}
	copy := *g
	return &copy, nil
}

func (m *memrepo) ListRecent(ctx context.Context, limit int) ([]*domain.GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	items := make([]*domain.GameRecord, 0, len(m.games))
	for _, g := range m.games {
		copy := *g
		items = append(items, &copy)
	}
	// Sort by PlayedAt desc (fallback to ID desc)
	sort.Slice(items, func(i, j int) bool {
		if !items[i].PlayedAt.Equal(items[j].PlayedAt) {
			return items[i].PlayedAt.After(items[j].PlayedAt)
		}
		return items[i].ID > items[j].ID
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
