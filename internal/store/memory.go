package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/i474232898/weather-station-charts/internal/weather"
)

var (
	// ErrNotFound is returned when no series has been built for a key.
	ErrNotFound = errors.New("no series for key")
)

// MemoryStore is a concurrency-safe in-memory store of built series and
// pipeline runs.
type MemoryStore struct {
	mu sync.RWMutex

	// key: series key, value: latest build
	series map[string]weather.SeriesSet

	// run history, oldest first
	runs []weather.RunSummary
	// max number of runs kept (<= 0 = unlimited)
	maxRuns int
}

// NewMemoryStore creates a new MemoryStore.
// If maxRuns is <= 0, run history is unlimited.
func NewMemoryStore(maxRuns int) *MemoryStore {
	return &MemoryStore{
		series:  make(map[string]weather.SeriesSet),
		maxRuns: maxRuns,
	}
}

// SaveSeries replaces the series stored under set.Key.
func (s *MemoryStore) SaveSeries(set weather.SeriesSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series[set.Key.String()] = set
}

// GetSeries returns the latest build of key.
func (s *MemoryStore) GetSeries(key weather.SeriesKey) (weather.SeriesSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.series[key.String()]
	if !ok {
		return weather.SeriesSet{}, ErrNotFound
	}
	return set, nil
}

// Keys returns every stored key ordered by station, field and period.
func (s *MemoryStore) Keys() []weather.SeriesKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]weather.SeriesKey, 0, len(s.series))
	for _, set := range s.series {
		keys = append(keys, set.Key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// SaveRun appends a run and enforces retention by count.
func (s *MemoryStore) SaveRun(run weather.RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = append(s.runs, run)
	if s.maxRuns > 0 && len(s.runs) > s.maxRuns {
		over := len(s.runs) - s.maxRuns
		s.runs = s.runs[over:]
	}
}

// Runs returns the run history, newest first.
func (s *MemoryStore) Runs() []weather.RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]weather.RunSummary, len(s.runs))
	for i, r := range s.runs {
		out[len(s.runs)-1-i] = r
	}
	return out
}
