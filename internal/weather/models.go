package weather

import (
	"errors"
	"strconv"
	"time"
)

// ErrDataFormat is returned when an upstream page or feed was fetched but
// its content could not be parsed.
var ErrDataFormat = errors.New("unparseable upstream data")

// Source identifies where an observation was scraped from.
type Source string

const (
	// SourceFMI is the station-id keyed observation feed of the national
	// meteorological service.
	SourceFMI Source = "fmi"
	// SourceForeca is the locality keyed HTML portal.
	SourceForeca Source = "foreca"
)

// Observation is a single current reading of a station.
// Timestamp is naive: it carries the wall clock reported by the source in
// the UTC location and no offset conversion is applied.
type Observation struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperatureC"`
	Humidity    float64   `json:"humidityPercent"`
}

// StationDirectory maps station ids of one locality to their display names.
type StationDirectory map[int]string

// Series identifies the stream of observations of one station from one source.
// Locality is only set for SourceForeca.
type Series struct {
	Source    Source `json:"source"`
	Locality  string `json:"locality,omitempty"`
	StationID int    `json:"stationId"`
}

// Key returns a canonical string key for indexing this series in stores.
func (s Series) Key() string {
	id := strconv.Itoa(s.StationID)
	if s.Locality == "" {
		return string(s.Source) + ":" + id
	}
	return string(s.Source) + ":" + s.Locality + ":" + id
}
