package weather

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Service exposes one operation per public contract of the scrapers and
// optionally records what it fetched into a Store.
type Service struct {
	logger     *zap.Logger
	stations   StationProvider
	localities LocalityProvider
	store      Store
}

// NewService creates a new Service. store may be nil when nothing is recorded.
func NewService(logger *zap.Logger, stations StationProvider, localities LocalityProvider, store Store) *Service {
	return &Service{
		logger:     logger,
		stations:   stations,
		localities: localities,
		store:      store,
	}
}

// LatestObservation returns the freshest observation of an FMI station.
func (s *Service) LatestObservation(ctx context.Context, stationID int) (Observation, bool, error) {
	if s.stations == nil {
		return Observation{}, false, fmt.Errorf("no station provider configured")
	}
	return s.stations.Latest(ctx, stationID)
}

// LocalityObservations returns the current observation of every station
// listed on a locality page.
func (s *Service) LocalityObservations(ctx context.Context, locality string) (map[int]Observation, error) {
	if s.localities == nil {
		return nil, fmt.Errorf("no locality provider configured")
	}
	return s.localities.Observations(ctx, locality)
}

// LocalityObservation returns the current observation of one station of a
// locality. ok is false when the page does not carry that station.
func (s *Service) LocalityObservation(ctx context.Context, locality string, stationID int) (Observation, bool, error) {
	if s.localities == nil {
		return Observation{}, false, fmt.Errorf("no locality provider configured")
	}
	return s.localities.Observation(ctx, locality, stationID)
}

// LocalityStations returns the station directory of a locality.
func (s *Service) LocalityStations(ctx context.Context, locality string) (StationDirectory, bool, error) {
	if s.localities == nil {
		return nil, false, fmt.Errorf("no locality provider configured")
	}
	return s.localities.Stations(ctx, locality)
}

// RecordStation fetches the latest observation of an FMI station and saves it.
// A station without data is logged and skipped.
func (s *Service) RecordStation(ctx context.Context, stationID int) error {
	if s.store == nil {
		return fmt.Errorf("no store configured")
	}

	obs, ok, err := s.LatestObservation(ctx, stationID)
	if err != nil {
		return err
	}
	series := Series{Source: SourceFMI, StationID: stationID}
	if !ok {
		s.logger.Info("no observation available", zap.String("series", series.Key()))
		return nil
	}

	s.store.Save(series, obs)
	return nil
}

// RecordLocality fetches every observation of a locality and saves them.
// It returns the number of observations saved.
func (s *Service) RecordLocality(ctx context.Context, locality string) (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("no store configured")
	}

	all, err := s.LocalityObservations(ctx, locality)
	if err != nil {
		return 0, err
	}
	if len(all) == 0 {
		s.logger.Info("no observations available", zap.String("locality", locality))
		return 0, nil
	}

	for id, obs := range all {
		s.store.Save(Series{Source: SourceForeca, Locality: locality, StationID: id}, obs)
	}
	return len(all), nil
}

// GetLatest returns the most recent recorded observation of a series.
func (s *Service) GetLatest(key string) (Observation, error) {
	if s.store == nil {
		return Observation{}, fmt.Errorf("no store configured")
	}
	return s.store.GetLatest(key)
}

// GetRange returns the recorded observations of a series between from and to.
func (s *Service) GetRange(key string, from, to time.Time) ([]Observation, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no store configured")
	}
	return s.store.GetRange(key, from, to)
}

// ListSeries returns every series with recorded observations.
func (s *Service) ListSeries() []Series {
	if s.store == nil {
		return nil
	}
	return s.store.Series()
}
