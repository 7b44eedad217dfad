package server

import (
	"context"
	"sort"
	"sync"
)

// fakeStore is an in-package ShowStore double. Setting err makes every
// operation fail with it.
type fakeStore struct {
	mu     sync.Mutex
	shows  map[int64]Show
	nextID int64
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{shows: map[int64]Show{}, nextID: 1}
}

func (f *fakeStore) Create(_ context.Context, in ShowInput) (Show, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Show{}, f.err
	}
	show := Show{ID: f.nextID, Name: in.Name, EpisodesSeen: in.EpisodesSeen}
	f.shows[show.ID] = show
	f.nextID++
	return show, nil
}

func (f *fakeStore) List(_ context.Context) ([]Show, error) {
	return f.filter(func(Show) bool { return true })
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (Show, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Show{}, false, f.err
	}
	show, ok := f.shows[id]
	return show, ok, nil
}

func (f *fakeStore) GetByEpisodes(_ context.Context, minEpisodes int) ([]Show, error) {
	return f.filter(func(s Show) bool { return s.EpisodesSeen >= minEpisodes })
}

func (f *fakeStore) UpdateByID(_ context.Context, id int64, patch ShowPatch) (Show, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Show{}, false, f.err
	}
	show, ok := f.shows[id]
	if !ok {
		return Show{}, false, nil
	}
	show = patch.Apply(show)
	f.shows[id] = show
	return show, true, nil
}

func (f *fakeStore) DeleteByID(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.shows[id]
	delete(f.shows, id)
	return ok, nil
}

func (f *fakeStore) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.shows)
}

func (f *fakeStore) filter(keep func(Show) bool) ([]Show, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var shows []Show
	for _, show := range f.shows {
		if keep(show) {
			shows = append(shows, show)
		}
	}
	sort.Slice(shows, func(i, j int) bool { return shows[i].ID < shows[j].ID })
	return shows, nil
}
