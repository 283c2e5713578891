package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Recorder fetches observations and records them. weather.Service satisfies it.
type Recorder interface {
	RecordStation(ctx context.Context, stationID int) error
	RecordLocality(ctx context.Context, locality string) (int, error)
}

// Targets lists what the scheduler polls.
type Targets struct {
	Stations   []int
	Localities []string
}

func (t Targets) empty() bool {
	return len(t.Stations) == 0 && len(t.Localities) == 0
}

// Scheduler periodically records observations for configured targets.
type Scheduler struct {
	logger    *zap.Logger
	scheduler *gocron.Scheduler
	recorder  Recorder
	targets   Targets
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler.
func New(logger *zap.Logger, targets Targets, interval time.Duration, recorder Recorder) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		logger:    logger,
		scheduler: s,
		recorder:  recorder,
		targets:   targets,
		interval:  interval,
		timeout:   30 * time.Second,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens immediately.
func (s *Scheduler) Start() error {
	if s.targets.empty() {
		s.logger.Info("no stations or localities configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce records every target once. Each target gets its own timeout and a
// failing target never stops the others.
func (s *Scheduler) RunOnce() {
	s.logger.Info("running observation fetch job",
		zap.Int("stations", len(s.targets.Stations)),
		zap.Int("localities", len(s.targets.Localities)),
	)

	var wg sync.WaitGroup
	for _, id := range s.targets.Stations {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()

			if err := s.recorder.RecordStation(ctx, id); err != nil {
				s.logger.Warn("station fetch failed", zap.Int("station_id", id), zap.Error(err))
			}
		}()
	}
	for _, locality := range s.targets.Localities {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()

			n, err := s.recorder.RecordLocality(ctx, locality)
			if err != nil {
				s.logger.Warn("locality fetch failed", zap.String("locality", locality), zap.Error(err))
				return
			}
			s.logger.Debug("locality recorded", zap.String("locality", locality), zap.Int("observations", n))
		}()
	}
	wg.Wait()

	s.logger.Info("completed observation fetch job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
