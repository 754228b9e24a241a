package anilist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"anihub/internal/logging"
	"anihub/internal/metrics"
	"anihub/pkg/models"
)

// DefaultEndpoint is the public AniList GraphQL endpoint.
const DefaultEndpoint = "https://graphql.anilist.co/"

// maxErrorBody bounds how much of a failed response ends up in errors.
const maxErrorBody = 512

// defaultTimeout applies when no timeout or *http.Client is supplied.
const defaultTimeout = 12 * time.Second

// Client posts GraphQL requests to AniList and normalizes the result.
//
// Calls go through a circuit breaker so a dead endpoint fails fast for the
// API server's repeated refreshes. There is no retry. The zero value posts
// to DefaultEndpoint; the breaker is created on first use.
type Client struct {
	Endpoint   string
	HTTP       *http.Client
	Normalizer Normalizer

	once    sync.Once
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		Endpoint: endpoint,
		HTTP:     &http.Client{Timeout: timeout},
	}
	c.init()
	return c
}

func (c *Client) init() {
	c.once.Do(func() {
		if c.Endpoint == "" {
			c.Endpoint = DefaultEndpoint
		}
		if c.HTTP == nil {
			c.HTTP = &http.Client{Timeout: defaultTimeout}
		}
		c.breaker = newBreaker("anilist")
	})
}

func newBreaker(name string) *gobreaker.CircuitBreaker[[]byte] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
}

// Send POSTs the payload and returns the raw response body.
func (c *Client) Send(ctx context.Context, payload Request) ([]byte, error) {
	c.init()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("anilist: encode request: %w", err)
	}

	start := time.Now()
	resp, err := c.breaker.Execute(func() ([]byte, error) {
		return c.post(ctx, body)
	})
	metrics.AniListRequestDuration.Observe(time.Since(start).Seconds())

	var statusErr *HTTPStatusError
	switch {
	case err == nil:
		metrics.AniListRequests.WithLabelValues("success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.AniListRequests.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("anilist: request rejected: %w", err)
	case errors.As(err, &statusErr):
		metrics.AniListRequests.WithLabelValues("http_error").Inc()
		return nil, err
	default:
		metrics.AniListRequests.WithLabelValues("transport_error").Inc()
		return nil, err
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("anilist: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anilist: request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("anilist: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

// FetchPage builds the request, sends it and normalizes the response.
func (c *Client) FetchPage(ctx context.Context, sort SortKey, page int, size PageSize) ([]models.MediaRecord, error) {
	log := logging.With().Str("component", "anilist").Str("sort", sort.Token()).Int("page", page).Int("per_page", size.Value()).Logger()
	log.Info().Msg("fetching page")

	body, err := c.Send(ctx, BuildRequest(sort, page, size))
	if err != nil {
		return nil, err
	}

	records, err := c.Normalizer.Normalize(body)
	if err != nil {
		return nil, fmt.Errorf("anilist: normalize: %w", err)
	}

	log.Info().Int("records", len(records)).Msg("page normalized")
	return records, nil
}
