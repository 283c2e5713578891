package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-observations/internal/weather"
)

// DefaultFMIBaseURL is the public site of the Finnish Meteorological Institute.
const DefaultFMIBaseURL = "https://www.ilmatieteenlaitos.fi"

// fmiLocalTimeLayout is the layout of the localtime field, e.g. 20240101T130000.
const fmiLocalTimeLayout = "20060102T150405"

// FMIProvider implements weather.StationProvider for the observation feed
// behind the FMI website.
type FMIProvider struct {
	name    string
	logger  *zap.Logger
	baseURL string
	fetcher Fetcher
}

// NewFMIProvider creates a provider. An empty baseURL selects DefaultFMIBaseURL.
func NewFMIProvider(logger *zap.Logger, fetcher Fetcher, baseURL string) *FMIProvider {
	if baseURL == "" {
		baseURL = DefaultFMIBaseURL
	}
	return &FMIProvider{
		name:    "fmi",
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: fetcher,
	}
}

func (p *FMIProvider) Name() string {
	return p.name
}

type fmiFeed struct {
	Observations []json.RawMessage `json:"observations"`
}

type fmiEntry struct {
	LocalTime   string     `json:"localtime"`
	Temperature *flexFloat `json:"t2m"`
	Humidity    flexFloat  `json:"Humidity"`
}

func (p *FMIProvider) observationsURL(stationID int) string {
	values := url.Values{}
	values.Set("fmisid", strconv.Itoa(stationID))
	values.Set("observations", "true")

	return fmt.Sprintf("%s/api/weather/observations?%s", p.baseURL, values.Encode())
}

// Latest fetches the observation history of a station and returns its most
// recent entry that carries a temperature. Entries that do not decode are
// skipped. Only a body that is not a JSON object is a data-format error.
func (p *FMIProvider) Latest(ctx context.Context, stationID int) (weather.Observation, bool, error) {
	logger := p.logger.With(zap.String("provider", p.name), zap.Int("station_id", stationID))

	body, err := p.fetcher.Fetch(ctx, p.observationsURL(stationID))
	if err != nil {
		if errors.Is(err, ErrFetchFailed) {
			logger.Info("no data from provider", zap.Error(err))
			return weather.Observation{}, false, nil
		}
		return weather.Observation{}, false, err
	}

	var feed fmiFeed
	if err := json.Unmarshal([]byte(body), &feed); err != nil {
		return weather.Observation{}, false, fmt.Errorf("%w: fmi station %d: %w", weather.ErrDataFormat, stationID, err)
	}

	readings := make([]weather.Observation, 0, len(feed.Observations))
	for i, raw := range feed.Observations {
		var entry fmiEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			logger.Warn("skipping malformed observation", zap.Int("index", i), zap.Error(err))
			continue
		}
		if entry.Temperature == nil {
			continue
		}

		ts, err := time.Parse(fmiLocalTimeLayout, entry.LocalTime)
		if err != nil {
			logger.Warn("skipping observation with bad localtime",
				zap.String("localtime", entry.LocalTime),
				zap.Error(err),
			)
			continue
		}

		readings = append(readings, weather.Observation{
			Timestamp:   ts,
			Temperature: float64(*entry.Temperature),
			Humidity:    float64(entry.Humidity),
		})
	}

	obs, ok := weather.LatestOf(readings)
	if !ok {
		logger.Info("no valid observations in feed", zap.Int("entries", len(feed.Observations)))
	}
	return obs, ok, nil
}
