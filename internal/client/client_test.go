package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/weather-outfit-service/internal/basetime"
	"github.com/kjstillabower/weather-outfit-service/internal/circuitbreaker"
	"github.com/kjstillabower/weather-outfit-service/internal/models"
	"github.com/kjstillabower/weather-outfit-service/internal/observability"
)

const ncstBody = `{"response":{"header":{"resultCode":"00","resultMsg":"NORMAL_SERVICE"},
"body":{"dataType":"JSON","items":{"item":[
{"baseDate":"20250115","baseTime":"1000","category":"T1H","nx":98,"ny":76,"obsrValue":"3.0"},
{"baseDate":"20250115","baseTime":"1000","category":"WSD","nx":98,"ny":76,"obsrValue":"6"}
]},"pageNo":1,"numOfRows":1000,"totalCount":2}}}`

const fcstBody = `{"response":{"header":{"resultCode":"00","resultMsg":"NORMAL_SERVICE"},
"body":{"items":{"item":[
{"baseDate":"20250115","baseTime":"0800","category":"TMP","fcstDate":"20250115","fcstTime":"1100","fcstValue":"4","nx":98,"ny":76}
]}}}`

var testParams = Params{
	Grid: models.GridCoordinate{NX: 98, NY: 76},
	Base: basetime.BaseTime{Date: "20250115", Time: "1000"},
}

func newTestClient(t *testing.T, srv *httptest.Server, key string) *KMAClient {
	t.Helper()
	return NewKMAClient(Config{
		ServiceKey:     key,
		ObservationURL: srv.URL + "/getUltraSrtNcst",
		ForecastURL:    srv.URL + "/getVilageFcst",
		Timeout:        2 * time.Second,
	})
}

func TestKMAClient_MissingKeySendsNothing(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "   ")
	assert.False(t, c.Configured())

	_, err := c.Call(context.Background(), EndpointObservation, testParams)
	require.ErrorIs(t, err, ErrConfiguration)
	_, err = c.Call(context.Background(), EndpointForecast, testParams)
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Equal(t, int32(0), hits.Load())
}

func TestKMAClient_QueryParameters(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string
	var gotCorr string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCorr = r.Header.Get("X-Correlation-ID")
		gotQuery = map[string]string{}
		for k, v := range r.URL.Query() {
			gotQuery[k] = v[0]
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(ncstBody))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "abc%2Bdef%3D%3D")
	ctx := observability.WithCorrelationID(context.Background(), "corr-1")
	items, err := c.Call(ctx, EndpointObservation, testParams)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "/getUltraSrtNcst", gotPath)
	assert.Equal(t, "corr-1", gotCorr)
	assert.Equal(t, map[string]string{
		"serviceKey": "abc+def==",
		"pageNo":     "1",
		"numOfRows":  "1000",
		"dataType":   "JSON",
		"base_date":  "20250115",
		"base_time":  "1000",
		"nx":         "98",
		"ny":         "76",
	}, gotQuery)

	v, ok := items[0].Value()
	assert.True(t, ok)
	assert.Equal(t, "3.0", v)
	assert.Equal(t, "T1H", items[0].Category)
}

func TestKMAClient_ForecastEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/getVilageFcst") {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(fcstBody))
	}))
	defer srv.Close()

	items, err := newTestClient(t, srv, "key").Call(context.Background(), EndpointForecast, testParams)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "1100", items[0].FcstTime)
	require.NotNil(t, items[0].FcstValue)
	assert.Equal(t, "4", *items[0].FcstValue)
}

func TestKMAClient_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, "oops", ErrUpstream},
		{"unauthorized", http.StatusUnauthorized, "", ErrUpstream},
		{"non-success result code", http.StatusOK, `{"response":{"header":{"resultCode":"10","resultMsg":"INVALID_REQUEST_PARAMETER_ERROR"}}}`, ErrUpstream},
		{"no data result code", http.StatusOK, `{"response":{"header":{"resultCode":"03","resultMsg":"NO_DATA"}}}`, ErrNoData},
		{"not json", http.StatusOK, `<OpenAPI_ServiceResponse>SERVICE_KEY_IS_NOT_REGISTERED_ERROR</OpenAPI_ServiceResponse>`, ErrParse},
		{"missing header", http.StatusOK, `{"response":{}}`, ErrParse},
		{"missing items", http.StatusOK, `{"response":{"header":{"resultCode":"00"},"body":{}}}`, ErrParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			items, err := newTestClient(t, srv, "key").Call(context.Background(), EndpointObservation, testParams)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Nil(t, items)
		})
	}
}

func TestKMAClient_EmptyItemList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":{"header":{"resultCode":"00"},"body":{"items":{"item":[]}}}}`))
	}))
	defer srv.Close()

	items, err := newTestClient(t, srv, "key").Call(context.Background(), EndpointObservation, testParams)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestKMAClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewKMAClient(Config{
		ServiceKey:     "key",
		ObservationURL: srv.URL,
		ForecastURL:    srv.URL,
		Timeout:        50 * time.Millisecond,
	})
	_, err := c.Call(context.Background(), EndpointObservation, testParams)
	require.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, ErrorCategoryTimeout, CategorizeError(err))
}

func TestKMAClient_CircuitBreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "key")
	c.SetCircuitBreaker(circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
		Component:        "kma",
	}))

	for i := 0; i < 2; i++ {
		_, err := c.Call(context.Background(), EndpointForecast, testParams)
		require.ErrorIs(t, err, ErrUpstream)
	}
	_, err := c.Call(context.Background(), EndpointForecast, testParams)
	require.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, ErrorCategoryCircuitOpen, CategorizeError(err))
	assert.Equal(t, int32(2), hits.Load())
}

func TestDecodeServiceKey(t *testing.T) {
	assert.Equal(t, "plain+key==", decodeServiceKey("plain+key=="))
	assert.Equal(t, "plain+key==", decodeServiceKey("plain%2Bkey%3D%3D"))
	assert.Equal(t, "", decodeServiceKey("  "))
}

// TestKMAClient_NoDataDoesNotTripBreaker verifies that result code 03 is
// reported to the caller but leaves the breaker closed.
func TestKMAClient_NoDataDoesNotTripBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"response":{"header":{"resultCode":"03","resultMsg":"NO_DATA"}}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "key")
	cb := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: 2,
		Timeout:          time.Minute,
		Component:        "kma",
	})
	c.SetCircuitBreaker(cb)

	for i := 0; i < 5; i++ {
		items, err := c.Call(context.Background(), EndpointObservation, testParams)
		require.ErrorIs(t, err, ErrNoData)
		require.ErrorIs(t, err, ErrUpstream)
		assert.Nil(t, items)
		assert.Equal(t, ErrorCategoryNoData, CategorizeError(err))
	}
	assert.Equal(t, int32(5), hits.Load())
	assert.Equal(t, circuitbreaker.StateClosed, cb.State())
}
