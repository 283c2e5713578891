package weather

import (
	"context"
	"time"
)

// StationProvider fetches observations from a source keyed by station id.
type StationProvider interface {
	Name() string
	// Latest returns the most recent valid observation of the station.
	// ok is false when the source had nothing to offer.
	Latest(ctx context.Context, stationID int) (obs Observation, ok bool, err error)
}

// LocalityProvider fetches observations and station listings from a source
// keyed by locality name.
type LocalityProvider interface {
	Name() string
	// Observations returns the current observation of every station in the
	// locality. An empty map means no data; it is not an error.
	Observations(ctx context.Context, locality string) (map[int]Observation, error)
	// Observation returns the current observation of one station of the
	// locality. ok is false when the locality page does not carry it.
	Observation(ctx context.Context, locality string, stationID int) (obs Observation, ok bool, err error)
	// Stations lists the stations of the locality. ok is false when the
	// locality page lists none.
	Stations(ctx context.Context, locality string) (dir StationDirectory, ok bool, err error)
}

// Store is the contract the in-memory store (and any future persistent store) must satisfy.
type Store interface {
	Save(series Series, obs Observation)
	GetLatest(key string) (Observation, error)
	GetRange(key string, from, to time.Time) ([]Observation, error)
	Series() []Series
}
