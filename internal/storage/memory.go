package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/treefix50/showtracker/internal/server"
)

// MemoryStore is the in-process mock database. Ids start at 1 and are never
// reused.
type MemoryStore struct {
	mu     sync.RWMutex
	shows  map[int64]server.Show
	nextID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		shows:  make(map[int64]server.Show),
		nextID: 1,
	}
}

func (m *MemoryStore) Create(_ context.Context, in server.ShowInput) (server.Show, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	show := server.Show{ID: m.nextID, Name: in.Name, EpisodesSeen: in.EpisodesSeen}
	m.shows[show.ID] = show
	m.nextID++
	return show, nil
}

func (m *MemoryStore) List(_ context.Context) ([]server.Show, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.collect(func(server.Show) bool { return true }), nil
}

func (m *MemoryStore) GetByID(_ context.Context, id int64) (server.Show, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	show, ok := m.shows[id]
	return show, ok, nil
}

func (m *MemoryStore) GetByEpisodes(_ context.Context, minEpisodes int) ([]server.Show, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.collect(func(show server.Show) bool {
		return show.EpisodesSeen >= minEpisodes
	}), nil
}

func (m *MemoryStore) UpdateByID(_ context.Context, id int64, patch server.ShowPatch) (server.Show, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	show, ok := m.shows[id]
	if !ok {
		return server.Show{}, false, nil
	}
	show = patch.Apply(show)
	m.shows[id] = show
	return show, true, nil
}

func (m *MemoryStore) DeleteByID(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.shows[id]; !ok {
		return false, nil
	}
	delete(m.shows, id)
	return true, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

// collect returns matching shows in id order. Callers hold m.mu.
func (m *MemoryStore) collect(keep func(server.Show) bool) []server.Show {
	shows := make([]server.Show, 0, len(m.shows))
	for _, show := range m.shows {
		if keep(show) {
			shows = append(shows, show)
		}
	}
	sort.Slice(shows, func(i, j int) bool { return shows[i].ID < shows[j].ID })
	return shows
}
