package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/weather-outfit-service/internal/basetime"
	"github.com/kjstillabower/weather-outfit-service/internal/circuitbreaker"
	"github.com/kjstillabower/weather-outfit-service/internal/models"
	"github.com/kjstillabower/weather-outfit-service/internal/observability"
)

// Endpoint identifies one of the two upstream feeds.
type Endpoint string

const (
	// EndpointObservation is the ultra-short-term observation (nowcast) feed.
	EndpointObservation Endpoint = "ncst"
	// EndpointForecast is the village forecast feed.
	EndpointForecast Endpoint = "fcst"
)

// Default feed URLs of the KMA short-term forecast service.
const (
	DefaultObservationURL = "https://apis.data.go.kr/1360000/VilageFcstInfoService_2.0/getUltraSrtNcst"
	DefaultForecastURL    = "https://apis.data.go.kr/1360000/VilageFcstInfoService_2.0/getVilageFcst"
)

const (
	resultCodeOK     = "00"
	resultCodeNoData = "03"
)

// Params are the per-call query parameters.
type Params struct {
	Grid models.GridCoordinate
	Base basetime.BaseTime
}

// FeedClient fetches one batch of records from a feed.
type FeedClient interface {
	Call(ctx context.Context, endpoint Endpoint, params Params) ([]models.FeedRecord, error)
}

var (
	// ErrConfiguration means no service key is configured; no request was sent.
	ErrConfiguration = errors.New("service key not configured")
	// ErrUpstream covers transport errors, timeouts, non-2xx responses and
	// non-success result codes in the envelope.
	ErrUpstream = errors.New("upstream failure")
	// ErrParse means the envelope or its item list could not be decoded.
	ErrParse = errors.New("malformed upstream response")
	// ErrNoData is result code 03: the feed has nothing published for the
	// requested base yet. It matches ErrUpstream but is not a fault of the
	// upstream and never counts against the circuit breaker.
	ErrNoData = fmt.Errorf("%w: no data for base", ErrUpstream)
)

// Config configures a KMAClient.
type Config struct {
	ServiceKey     string
	ObservationURL string
	ForecastURL    string
	Timeout        time.Duration
	Rows           int
}

// KMAClient calls the nowcast and village forecast feeds. It never retries;
// fallback policy belongs to the caller.
type KMAClient struct {
	serviceKey string
	urls       map[Endpoint]string
	rows       int
	timeout    time.Duration
	client     *http.Client
	breaker    *circuitbreaker.CircuitBreaker
}

// NewKMAClient returns a client for cfg. A missing service key is not an
// error here: every Call reports ErrConfiguration instead.
func NewKMAClient(cfg Config) *KMAClient {
	if cfg.ObservationURL == "" {
		cfg.ObservationURL = DefaultObservationURL
	}
	if cfg.ForecastURL == "" {
		cfg.ForecastURL = DefaultForecastURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Rows <= 0 {
		cfg.Rows = 1000
	}
	return &KMAClient{
		serviceKey: decodeServiceKey(cfg.ServiceKey),
		urls: map[Endpoint]string{
			EndpointObservation: cfg.ObservationURL,
			EndpointForecast:    cfg.ForecastURL,
		},
		rows:    cfg.Rows,
		timeout: cfg.Timeout,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// SetCircuitBreaker wraps every upstream request in cb. Nil disables it.
func (c *KMAClient) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) {
	c.breaker = cb
}

// Configured reports whether a service key is set.
func (c *KMAClient) Configured() bool {
	return c.serviceKey != ""
}

// decodeServiceKey accepts both the raw and the URL-encoded form of the key
// as issued by the portal, so that query encoding does not double-escape.
func decodeServiceKey(key string) string {
	key = strings.TrimSpace(key)
	if strings.Contains(key, "%") {
		if k, err := url.QueryUnescape(key); err == nil {
			return k
		}
	}
	return key
}

type envelope struct {
	Response struct {
		Header struct {
			ResultCode string `json:"resultCode"`
			ResultMsg  string `json:"resultMsg"`
		} `json:"header"`
		Body *struct {
			Items *struct {
				Item []models.FeedRecord `json:"item"`
			} `json:"items"`
			TotalCount int `json:"totalCount"`
		} `json:"body"`
	} `json:"response"`
}

// Call issues one GET against endpoint and returns the decoded item list.
func (c *KMAClient) Call(ctx context.Context, endpoint Endpoint, params Params) ([]models.FeedRecord, error) {
	if c.serviceKey == "" {
		return nil, ErrConfiguration
	}
	if _, ok := c.urls[endpoint]; !ok {
		return nil, fmt.Errorf("unknown endpoint %q", endpoint)
	}
	if c.breaker == nil {
		return c.callAPI(ctx, endpoint, params)
	}
	var items []models.FeedRecord
	var callErr error
	err := c.breaker.Call(ctx, func() error {
		items, callErr = c.callAPI(ctx, endpoint, params)
		if errors.Is(callErr, ErrNoData) {
			return nil
		}
		return callErr
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if err != nil {
		return items, err
	}
	return items, callErr
}

func (c *KMAClient) callAPI(ctx context.Context, endpoint Endpoint, params Params) ([]models.FeedRecord, error) {
	start := time.Now()
	feed := string(endpoint)

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, endpoint, params)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues(feed, "error").Inc()
		return nil, fmt.Errorf("build request: %w", err)
	}

	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.UpstreamCallsTotal.WithLabelValues(feed, "error").Inc()
		observability.UpstreamDuration.WithLabelValues(feed, "error").Observe(duration)

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: request timeout: %v", ErrUpstream, err)
		}
		return nil, fmt.Errorf("%w: http request failed: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.UpstreamCallsTotal.WithLabelValues(feed, status).Inc()
	observability.UpstreamDuration.WithLabelValues(feed, status).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", ErrUpstream, err)
	}

	return decodeItems(body)
}

// decodeItems extracts response.body.items.item from a feed envelope.
func decodeItems(body []byte) ([]models.FeedRecord, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	h := env.Response.Header
	if h.ResultCode == "" {
		return nil, fmt.Errorf("%w: missing result code", ErrParse)
	}
	if h.ResultCode == resultCodeNoData {
		return nil, fmt.Errorf("%w: %s", ErrNoData, h.ResultMsg)
	}
	if h.ResultCode != resultCodeOK {
		return nil, fmt.Errorf("%w: result %s %s", ErrUpstream, h.ResultCode, h.ResultMsg)
	}
	if env.Response.Body == nil || env.Response.Body.Items == nil {
		return nil, fmt.Errorf("%w: missing item list", ErrParse)
	}
	return env.Response.Body.Items.Item, nil
}

func (c *KMAClient) buildRequest(ctx context.Context, endpoint Endpoint, p Params) (*http.Request, error) {
	baseURL, err := url.Parse(c.urls[endpoint])
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	params := url.Values{}
	params.Set("serviceKey", c.serviceKey)
	params.Set("pageNo", "1")
	params.Set("numOfRows", strconv.Itoa(c.rows))
	params.Set("dataType", "JSON")
	params.Set("base_date", p.Base.Date)
	params.Set("base_time", p.Base.Time)
	params.Set("nx", strconv.Itoa(p.Grid.NX))
	params.Set("ny", strconv.Itoa(p.Grid.NY))
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
