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

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/i474232898/weather-observations/internal/common"
	"github.com/i474232898/weather-observations/internal/jsliteral"
	"github.com/i474232898/weather-observations/internal/weather"
)

// DefaultForecaBaseURL is the public site of the Foreca weather portal.
const DefaultForecaBaseURL = "https://www.foreca.fi"

const (
	stationsMarker     = "var stations ="
	observationsMarker = "var observations ="

	// forecaTimestampLayout parses "<year> <date> <time>", e.g. "2024 15.06. 12.00".
	forecaTimestampLayout = "2006 2.1. 15.04"
)

// ForecaProvider implements weather.LocalityProvider by scraping the
// JavaScript literals embedded in Foreca locality pages.
type ForecaProvider struct {
	name    string
	logger  *zap.Logger
	baseURL string
	fetcher Fetcher
	now     func() time.Time
}

// NewForecaProvider creates a provider. An empty baseURL selects DefaultForecaBaseURL.
func NewForecaProvider(logger *zap.Logger, fetcher Fetcher, baseURL string) *ForecaProvider {
	if baseURL == "" {
		baseURL = DefaultForecaBaseURL
	}
	return &ForecaProvider{
		name:    "foreca",
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: fetcher,
		now:     time.Now,
	}
}

func (p *ForecaProvider) Name() string {
	return p.name
}

type forecaStation struct {
	ID   flexInt `json:"id"`
	Name string  `json:"n"`
}

type forecaObservation struct {
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Temperature flexFloat `json:"temp"`
	Humidity    flexFloat `json:"rhum"`
}

func (p *ForecaProvider) localityURL(locality string) string {
	return fmt.Sprintf("%s/Finland/%s", p.baseURL, url.PathEscape(locality))
}

// literal fetches the locality page and returns the literal assigned after
// marker, ending at closing (whose last byte is dropped). ok is false when the
// page could not be fetched or does not carry the marker. A marker without
// its closing token is a data-format error.
func (p *ForecaProvider) literal(ctx context.Context, logger *zap.Logger, locality, marker, closing string) (string, bool, error) {
	page, err := p.fetcher.Fetch(ctx, p.localityURL(locality))
	if err != nil {
		if errors.Is(err, ErrFetchFailed) {
			logger.Info("no data from provider", zap.Error(err))
			return "", false, nil
		}
		return "", false, err
	}

	span, err := common.Span(scriptContaining(page, marker), marker, closing, 1)
	switch {
	case errors.Is(err, common.ErrNoMarker):
		logger.Info("marker not found on locality page", zap.String("marker", marker))
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("%w: foreca page of %s: %q: %w", weather.ErrDataFormat, locality, marker, err)
	}
	return span, true, nil
}

// scriptContaining returns the text of the first inline script that mentions
// marker. The whole page is returned when no script does, or when the page
// cannot be parsed as HTML.
func scriptContaining(page, marker string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return page
	}

	found := page
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if common.HasAny(text, marker) {
			found = text
			return false
		}
		return true
	})
	return found
}

// Stations returns the station directory embedded in the locality page.
func (p *ForecaProvider) Stations(ctx context.Context, locality string) (weather.StationDirectory, bool, error) {
	logger := p.logger.With(zap.String("provider", p.name), zap.String("locality", locality))

	span, ok, err := p.literal(ctx, logger, locality, stationsMarker, "];")
	if err != nil || !ok {
		return nil, false, err
	}

	var entries []json.RawMessage
	if err := jsliteral.Decode(span, &entries); err != nil {
		return nil, false, fmt.Errorf("%w: foreca stations of %s: %w", weather.ErrDataFormat, locality, err)
	}

	dir := make(weather.StationDirectory, len(entries))
	for i, entry := range entries {
		var st forecaStation
		if err := json.Unmarshal(entry, &st); err != nil {
			logger.Warn("skipping malformed station entry", zap.Int("index", i), zap.Error(err))
			continue
		}
		dir[int(st.ID)] = st.Name
	}
	return dir, true, nil
}

// Observations returns the current observation of every station listed on
// the locality page. Station records that do not decode, or carry an unusable
// id or date, are skipped.
func (p *ForecaProvider) Observations(ctx context.Context, locality string) (map[int]weather.Observation, error) {
	logger := p.logger.With(zap.String("provider", p.name), zap.String("locality", locality))
	result := make(map[int]weather.Observation)

	span, ok, err := p.literal(ctx, logger, locality, observationsMarker, "};")
	if err != nil {
		return nil, err
	}
	if !ok {
		return result, nil
	}

	var raw map[string]json.RawMessage
	if err := jsliteral.Decode(span, &raw); err != nil {
		return nil, fmt.Errorf("%w: foreca observations of %s: %w", weather.ErrDataFormat, locality, err)
	}

	year := p.now().Year()
	for key, value := range raw {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			logger.Warn("skipping observation with non-numeric station id", zap.String("station", key))
			continue
		}

		var rec forecaObservation
		if err := json.Unmarshal(value, &rec); err != nil {
			logger.Warn("skipping malformed observation", zap.Int("station_id", id), zap.Error(err))
			continue
		}

		ts, err := parseForecaTimestamp(year, rec.Date, rec.Time)
		if err != nil {
			logger.Warn("skipping observation with bad timestamp",
				zap.Int("station_id", id),
				zap.String("date", rec.Date),
				zap.String("time", rec.Time),
				zap.Error(err),
			)
			continue
		}

		result[id] = weather.Observation{
			Timestamp:   ts,
			Temperature: float64(rec.Temperature),
			Humidity:    float64(rec.Humidity),
		}
	}

	return result, nil
}

// Observation returns the current observation of one station of a locality.
// ok is false when the page does not carry that station.
func (p *ForecaProvider) Observation(ctx context.Context, locality string, stationID int) (weather.Observation, bool, error) {
	all, err := p.Observations(ctx, locality)
	if err != nil {
		return weather.Observation{}, false, err
	}
	obs, ok := all[stationID]
	return obs, ok, nil
}

// parseForecaTimestamp combines a year-less day-first date ("15.06.") and a
// dotted time ("12.00") into a naive timestamp of the given year.
func parseForecaTimestamp(year int, date, clock string) (time.Time, error) {
	s := strconv.Itoa(year) + " " + strings.TrimSpace(date) + " " + strings.TrimSpace(clock)
	return time.Parse(forecaTimestampLayout, s)
}
