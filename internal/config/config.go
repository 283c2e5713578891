package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/i474232898/weather-observations/internal/weather/providers"
)

type AppConfig struct {
	Port string

	// Outbound page fetching.
	HTTPTimeout   time.Duration
	UserAgent     string
	FMIBaseURL    string
	ForecaBaseURL string

	// FetchInterval controls how often configured targets are recorded.
	FetchInterval time.Duration

	// Targets to record.
	FMIStations      []int
	ForecaLocalities []string

	// In-memory store retention.
	StoreMaxHistory int           // max number of observations per series (0 = unlimited)
	StoreMaxAge     time.Duration // max age of observations (0 = unlimited)

	Debug bool
}

// Load reads configuration from a .env file, an optional CONFIG_FILE and the
// environment, in increasing order of precedence.
func Load() (*AppConfig, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", file, err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("HTTP_TIMEOUT", "15s")
	v.SetDefault("USER_AGENT", providers.DefaultUserAgent)
	v.SetDefault("FMI_BASE_URL", providers.DefaultFMIBaseURL)
	v.SetDefault("FORECA_BASE_URL", providers.DefaultForecaBaseURL)
	v.SetDefault("FETCH_INTERVAL", "15m")
	v.SetDefault("FMI_STATIONS", "")
	v.SetDefault("FORECA_LOCALITIES", "")
	v.SetDefault("STORE_MAX_HISTORY", 96) // roughly 24h at 15-minute intervals
	v.SetDefault("STORE_MAX_AGE", "24h")
	v.SetDefault("LOG_DEBUG", false)
}

func fromViper(v *viper.Viper) (*AppConfig, error) {
	cfg := &AppConfig{
		Port:          v.GetString("PORT"),
		UserAgent:     v.GetString("USER_AGENT"),
		FMIBaseURL:    v.GetString("FMI_BASE_URL"),
		ForecaBaseURL: v.GetString("FORECA_BASE_URL"),
		Debug:         v.GetBool("LOG_DEBUG"),
	}

	var err error
	if cfg.HTTPTimeout, err = duration(v, "HTTP_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.FetchInterval, err = duration(v, "FETCH_INTERVAL"); err != nil {
		return nil, err
	}
	if cfg.StoreMaxAge, err = duration(v, "STORE_MAX_AGE"); err != nil {
		return nil, err
	}

	maxHistory, err := strconv.Atoi(strings.TrimSpace(v.GetString("STORE_MAX_HISTORY")))
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_MAX_HISTORY: %w", err)
	}
	cfg.StoreMaxHistory = maxHistory

	if cfg.FMIStations, err = parseStations(v.GetString("FMI_STATIONS")); err != nil {
		return nil, err
	}
	cfg.ForecaLocalities = splitList(v.GetString("FORECA_LOCALITIES"))

	return cfg, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}

func parseStations(s string) ([]int, error) {
	var ids []int
	for _, item := range splitList(s) {
		id, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("invalid FMI_STATIONS entry %q: %w", item, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
