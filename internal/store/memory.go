package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/weather-observations/internal/weather"
)

var (
	// ErrNotFound is returned when no observations are recorded for a series.
	ErrNotFound = errors.New("no observations recorded for series")
)

// SeriesHistory holds the time-ordered observations of one series.
type SeriesHistory struct {
	Series       weather.Series
	Observations []weather.Observation
}

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: series key, value: history
	data map[string]*SeriesHistory

	// retention configuration
	maxHistory int           // max number of observations per series
	maxAge     time.Duration // optional max age for observations
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*SeriesHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// Save records an observation and enforces retention. An observation with a
// timestamp already present in the series replaces the earlier one, so
// polling the same reading twice does not duplicate it.
func (s *MemoryStore) Save(series weather.Series, obs weather.Observation) {
	key := series.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &SeriesHistory{Series: series}
		s.data[key] = history
	}

	i := sort.Search(len(history.Observations), func(i int) bool {
		return !history.Observations[i].Timestamp.Before(obs.Timestamp)
	})
	if i < len(history.Observations) && history.Observations[i].Timestamp.Equal(obs.Timestamp) {
		history.Observations[i] = obs
	} else {
		history.Observations = append(history.Observations, weather.Observation{})
		copy(history.Observations[i+1:], history.Observations[i:])
		history.Observations[i] = obs
	}

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Observations) > s.maxHistory {
		over := len(history.Observations) - s.maxHistory
		history.Observations = history.Observations[over:]
	}

	// Enforce retention by age, measured back from the newest observation.
	// Timestamps are the upstream wall-clock readings stored as UTC, so they
	// cannot be compared with time.Now.
	if s.maxAge > 0 {
		cutoff := history.Observations[len(history.Observations)-1].Timestamp.Add(-s.maxAge)
		i := 0
		for ; i < len(history.Observations)-1; i++ {
			if !history.Observations[i].Timestamp.Before(cutoff) {
				break
			}
		}
		history.Observations = history.Observations[i:]
	}
}

// GetLatest returns the most recent observation of a series.
func (s *MemoryStore) GetLatest(key string) (weather.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key]
	if !ok || len(history.Observations) == 0 {
		return weather.Observation{}, ErrNotFound
	}
	return history.Observations[len(history.Observations)-1], nil
}

// GetRange returns all observations of a series between from and to (inclusive).
func (s *MemoryStore) GetRange(key string, from, to time.Time) ([]weather.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key]
	if !ok || len(history.Observations) == 0 {
		return nil, ErrNotFound
	}

	var result []weather.Observation
	for _, obs := range history.Observations {
		if !obs.Timestamp.Before(from) && !obs.Timestamp.After(to) {
			result = append(result, obs)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}

// Series lists every series with at least one recorded observation.
func (s *MemoryStore) Series() []weather.Series {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]weather.Series, 0, len(s.data))
	for _, h := range s.data {
		if len(h.Observations) > 0 {
			out = append(out, h.Series)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
