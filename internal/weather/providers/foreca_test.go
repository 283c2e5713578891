package providers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/i474232898/weather-observations/internal/weather"
)

const tamperePage = `<!DOCTYPE html>
<html>
<head>
<title>Tampere</title>
<script src="/js/app.js"></script>
<script>
	var stations = [{id:1,n:'Alpha',lat:61.5},{id:'2',n:'Beta',lat:61.4}];
	var observations = {1:{date:'15.06.',time:'12.00',temp:20,rhum:55},2:{date:'5.6.',time:'9.30',temp:null,rhum:'+70'}};
	var unrelated = {a:1};
</script>
</head>
<body><p>var stations = this text is not a script</p></body>
</html>`

func newForeca(t *testing.T, status int, body string) (*ForecaProvider, *pageServer) {
	ps := newPageServer(t, status, body)
	p := NewForecaProvider(zaptest.NewLogger(t), ps.fetcher(t), ps.URL)
	p.now = func() time.Time { return time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC) }
	return p, ps
}

func TestForecaStations(t *testing.T) {
	p, ps := newForeca(t, http.StatusOK, tamperePage)

	dir, ok, err := p.Stations(context.Background(), "Tampere")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, weather.StationDirectory{1: "Alpha", 2: "Beta"}, dir)
	path, _ := ps.requested()
	assert.Equal(t, "/Finland/Tampere", path)
}

func TestForecaStationsRawPage(t *testing.T) {
	p, _ := newForeca(t, http.StatusOK, `var stations = [{id:1,n:'Alpha'},{id:2,n:'Beta'}];`)

	dir, ok, err := p.Stations(context.Background(), "Tampere")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, weather.StationDirectory{1: "Alpha", 2: "Beta"}, dir)
}

func TestForecaStationsDuplicateIDLastWins(t *testing.T) {
	p, _ := newForeca(t, http.StatusOK, `<script>var stations = [{id:1,n:'Old'},{id:1,n:'New'}];</script>`)

	dir, ok, err := p.Stations(context.Background(), "Tampere")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, weather.StationDirectory{1: "New"}, dir)
}

func TestForecaStationsEmptyList(t *testing.T) {
	p, _ := newForeca(t, http.StatusOK, `<script>var stations = [];</script>`)

	dir, ok, err := p.Stations(context.Background(), "Tampere")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, dir)
}

func TestForecaStationsAbsent(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"no marker", http.StatusOK, `<html><script>var observations = {};</script></html>`},
		{"not found", http.StatusNotFound, tamperePage},
		{"forbidden", http.StatusForbidden, ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newForeca(t, tt.status, tt.body)

			dir, ok, err := p.Stations(context.Background(), "Tampere")
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, dir)
		})
	}
}

func TestForecaStationsMalformed(t *testing.T) {
	p, _ := newForeca(t, http.StatusOK, `<script>var stations = [{id:1,n:getName()}];</script>`)

	_, _, err := p.Stations(context.Background(), "Tampere")
	assert.ErrorIs(t, err, weather.ErrDataFormat)
}

func TestForecaStationsSkipsUndecodableEntries(t *testing.T) {
	p, _ := newForeca(t, http.StatusOK, `<script>var stations = [{id:1,n:'Alpha'},{id:'abc',n:'Bad'},7,{id:3,n:['x']}];</script>`)

	dir, ok, err := p.Stations(context.Background(), "Tampere")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, weather.StationDirectory{1: "Alpha"}, dir)
}

func TestForecaUnterminatedLiteral(t *testing.T) {
	p, _ := newForeca(t, http.StatusOK, `<script>
		var stations = [{id:1,n:'Alpha'}]
		var observations = {1:{date:'15.06.',time:'12.00',temp:20,rhum:55}}
	</script>`)
	ctx := context.Background()

	_, ok, err := p.Stations(ctx, "Tampere")
	assert.ErrorIs(t, err, weather.ErrDataFormat)
	assert.False(t, ok)

	_, err = p.Observations(ctx, "Tampere")
	assert.ErrorIs(t, err, weather.ErrDataFormat)
}

func TestForecaObservations(t *testing.T) {
	p, _ := newForeca(t, http.StatusOK, tamperePage)

	all, err := p.Observations(context.Background(), "Tampere")
	require.NoError(t, err)

	assert.Equal(t, map[int]weather.Observation{
		1: {
			Timestamp:   time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC),
			Temperature: 20.0,
			Humidity:    55.0,
		},
		2: {
			Timestamp:   time.Date(2026, 6, 5, 9, 30, 0, 0, time.UTC),
			Temperature: 0,
			Humidity:    70.0,
		},
	}, all)
}

func TestForecaObservationSingleStation(t *testing.T) {
	p, _ := newForeca(t, http.StatusOK, `<script>var observations = {1:{date:'15.06.',time:'12.00',temp:20,rhum:55}};</script>`)
	ctx := context.Background()

	obs, ok, err := p.Observation(ctx, "Tampere", 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 20.0, obs.Temperature)
	assert.Equal(t, 55.0, obs.Humidity)
	assert.Equal(t, time.June, obs.Timestamp.Month())
	assert.Equal(t, 15, obs.Timestamp.Day())
	assert.Equal(t, 2026, obs.Timestamp.Year())

	_, ok, err = p.Observation(ctx, "Tampere", 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestForecaObservationsSkipsBadRecords(t *testing.T) {
	p, _ := newForeca(t, http.StatusOK, `<script>var observations = {
		1:{date:'15.06.',time:'12.00',temp:20,rhum:55},
		x:{date:'15.06.',time:'12.00',temp:1,rhum:1},
		3:{date:'tomorrow',time:'12.00',temp:1,rhum:1}
	};</script>`)

	all, err := p.Observations(context.Background(), "Tampere")
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Contains(t, all, 1)
}

func TestForecaObservationsSkipsUndecodableRecords(t *testing.T) {
	tests := []struct {
		name string
		bad  string
	}{
		{"non-numeric temperature", `2:{date:'15.06.',time:'12.00',temp:'-',rhum:50}`},
		{"null record", `2:null`},
		{"list record", `2:[1,2]`},
		{"numeric date", `2:{date:15,time:'12.00',temp:1,rhum:1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newForeca(t, http.StatusOK, `<script>var observations = {1:{date:'15.06.',time:'12.00',temp:20,rhum:55},`+tt.bad+`};</script>`)

			all, err := p.Observations(context.Background(), "Tampere")
			require.NoError(t, err)
			assert.Equal(t, map[int]weather.Observation{
				1: {
					Timestamp:   time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC),
					Temperature: 20.0,
					Humidity:    55.0,
				},
			}, all)
		})
	}
}

func TestForecaObservationsEmpty(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"no marker", http.StatusOK, `<html><script>var stations = [];</script></html>`},
		{"server error", http.StatusInternalServerError, tamperePage},
		{"not found", http.StatusNotFound, ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newForeca(t, tt.status, tt.body)

			all, err := p.Observations(context.Background(), "Tampere")
			require.NoError(t, err)
			assert.NotNil(t, all)
			assert.Empty(t, all)

			_, ok, err := p.Observation(context.Background(), "Tampere", 1)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestForecaObservationsMalformed(t *testing.T) {
	p, _ := newForeca(t, http.StatusOK, `<script>var observations = {1:{date:'15.06.',temp:[1,2}};</script>`)

	_, err := p.Observations(context.Background(), "Tampere")
	assert.ErrorIs(t, err, weather.ErrDataFormat)
}

func TestForecaLocalityIsEscaped(t *testing.T) {
	p, ps := newForeca(t, http.StatusOK, tamperePage)

	_, _, err := p.Stations(context.Background(), "Hämeenlinna")
	require.NoError(t, err)
	path, _ := ps.requested()
	assert.Equal(t, "/Finland/H%C3%A4meenlinna", path)
}

func TestParseForecaTimestamp(t *testing.T) {
	ts, err := parseForecaTimestamp(2024, "31.12.", "23.59")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC), ts)

	_, err = parseForecaTimestamp(2024, "31.13.", "23.59")
	assert.Error(t, err)
}
