package weather

// LatestOf returns the most recent observation in obs. Observations are
// ordered as (timestamp, temperature, humidity) tuples, so when two readings
// share the newest timestamp the warmer one wins, then the more humid one.
func LatestOf(obs []Observation) (Observation, bool) {
	if len(obs) == 0 {
		return Observation{}, false
	}

	best := obs[0]
	for _, o := range obs[1:] {
		if o.newerThan(best) {
			best = o
		}
	}
	return best, true
}

func (o Observation) newerThan(other Observation) bool {
	switch {
	case !o.Timestamp.Equal(other.Timestamp):
		return o.Timestamp.After(other.Timestamp)
	case o.Temperature != other.Temperature:
		return o.Temperature > other.Temperature
	default:
		return o.Humidity > other.Humidity
	}
}
