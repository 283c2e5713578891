package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DefaultUserAgent is sent with every page request. At least one source
// rejects clients that do not look like a browser.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 6.1; Win64; x64)"

var (
	// ErrFetchFailed marks every way a page fetch can fail. Callers treat it
	// as "no data available".
	ErrFetchFailed = errors.New("page fetch failed")

	errServerError = errors.New("server error")
	errUnexpected  = errors.New("unexpected status code")
	errCircuitOpen = errors.New("circuit breaker open")
	errNotUTF8     = errors.New("body is not valid UTF-8")
)

// Fetcher downloads a page as text.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// PageFetcher issues a single GET per call, guarded by a circuit breaker so a
// source that keeps failing is left alone for a while.
type PageFetcher struct {
	logger    *zap.Logger
	client    *http.Client
	userAgent string
	circuit   *gobreaker.CircuitBreaker
}

// NewPageFetcher creates a fetcher. An empty userAgent selects DefaultUserAgent.
func NewPageFetcher(logger *zap.Logger, client *http.Client, name, userAgent string) *PageFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &PageFetcher{
		logger:    logger,
		client:    client,
		userAgent: userAgent,
		circuit:   cb,
	}
}

// Fetch returns the body of rawURL when the server answers 200 with valid
// UTF-8. Any other outcome returns an error wrapping ErrFetchFailed. No
// retries are made.
func (f *PageFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	logger := f.logger.With(
		zap.String("fetch_id", uuid.NewString()),
		zap.String("url", rawURL),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	type page struct {
		status int
		body   []byte
	}

	result, err := f.circuit.Execute(func() (interface{}, error) {
		resp, execErr := f.client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		defer resp.Body.Close()

		// Only server-side trouble counts against the breaker; a 404 for an
		// unknown locality is an answer, not an outage.
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return page{status: resp.StatusCode}, nil
		}

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, readErr
		}
		return page{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		logger.Warn("fetch failed", zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	p, ok := result.(page)
	if !ok {
		return "", fmt.Errorf("%w: unexpected result type from circuit breaker", ErrFetchFailed)
	}
	if p.status != http.StatusOK {
		logger.Info("received non-OK response", zap.Int("status_code", p.status))
		return "", fmt.Errorf("%w: %w: %d", ErrFetchFailed, errUnexpected, p.status)
	}

	if !utf8.Valid(p.body) {
		logger.Warn("fetch failed", zap.Error(errNotUTF8))
		return "", fmt.Errorf("%w: %w", ErrFetchFailed, errNotUTF8)
	}

	logger.Debug("fetched page", zap.Int("bytes", len(p.body)))
	return string(p.body), nil
}

// flexFloat decodes a JSON number, a numeric string such as "+5.1", or null.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := unquoteNumber(b)
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", s, err)
	}
	*f = flexFloat(v)
	return nil
}

// flexInt decodes a JSON integer or a string holding one.
type flexInt int

func (i *flexInt) UnmarshalJSON(b []byte) error {
	s := unquoteNumber(b)
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid integer %q: %w", s, err)
	}
	*i = flexInt(v)
	return nil
}

func unquoteNumber(b []byte) string {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return ""
	}
	s = strings.TrimSpace(strings.Trim(s, `"`))
	return strings.TrimPrefix(s, "+")
}
