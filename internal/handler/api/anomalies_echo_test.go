package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"CoinPulse/internal/domain/models"
	"CoinPulse/internal/service/cache"
	"CoinPulse/internal/service/coingecko"
	"CoinPulse/internal/usecase"
)

type stubSource struct {
	chart models.MarketChart
	err   error
	calls int
}

func (s *stubSource) MarketChart(_ context.Context, coin string) (models.MarketChart, error) {
	s.calls++
	if !coingecko.ValidCoin(coin) {
		return models.MarketChart{}, fmt.Errorf("%q: %w", coin, models.ErrInvalidCoin)
	}
	return s.chart, s.err
}

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

// outlierChart has a flat series with one spike at position 45 (2023-01-15).
func outlierChart() models.MarketChart {
	day0 := time.Date(2022, 12, 1, 0, 0, 0, 0, time.UTC)
	rows := make([][]float64, models.SeriesLength)
	for i := range rows {
		v := 100.0
		if i%2 == 1 {
			v = 101
		}
		if i == 45 {
			v = 1000
		}
		rows[i] = []float64{float64(day0.AddDate(0, 0, i).UnixMilli()), v}
	}
	return models.MarketChart{Prices: rows, TotalVolumes: rows, MarketCaps: rows}
}

func newTestServer(src *stubSource, opts ...HandlerOption) *echo.Echo {
	p := usecase.NewAnomalyPipeline(src, nil, nil, nil, usecase.PipelineConfig{})
	e := echo.New()
	NewAnomaliesEchoHandler(nil, p, opts...).RegisterRoutes(e)
	return e
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope %s: %v", rec.Body.String(), err)
	}
	if dest != nil {
		if err := json.Unmarshal(env.Data, dest); err != nil {
			t.Fatalf("decode data %s: %v", env.Data, err)
		}
	}
}

func TestAnomaliesReturnsReport(t *testing.T) {
	src := &stubSource{chart: outlierChart()}
	e := newTestServer(src)

	rec := get(e, "/api/anomalies?coin=bitcoin")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	var report models.RunReport
	decode(t, rec, &report)
	if report.Coin != "bitcoin" || report.State != models.StateDone {
		t.Fatalf("unexpected report %+v", report)
	}
	price := report.Segment(models.SegmentPrice)
	if price == nil {
		t.Fatalf("price segment missing")
	}
	if len(price.Queries) != 0 {
		t.Fatalf("queries must be off by default, got %d", len(price.Queries))
	}
	found := false
	for _, d := range price.QueryDates {
		if d == "2023-01-15" {
			found = true
		}
	}
	if !found {
		t.Fatalf("outlier date missing from %v", price.QueryDates)
	}
}

func TestAnomaliesCachesReport(t *testing.T) {
	src := &stubSource{chart: outlierChart()}
	e := newTestServer(src, WithReportCache(cache.NewTTLCache(), time.Minute))

	for i := 0; i < 2; i++ {
		if rec := get(e, "/api/anomalies?coin=bitcoin&eps=0.2"); rec.Code != http.StatusOK {
			t.Fatalf("call %d: status %d", i, rec.Code)
		}
	}
	if src.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", src.calls)
	}
	rec := get(e, "/api/anomalies?coin=bitcoin&eps=0.3")
	if rec.Code != http.StatusOK || src.calls != 2 {
		t.Fatalf("different params must miss the cache: status %d calls %d", rec.Code, src.calls)
	}
	if rec.Header().Get("X-Cache") != "" {
		t.Fatalf("miss marked as hit")
	}
}

func TestAnomaliesValidation(t *testing.T) {
	src := &stubSource{chart: outlierChart()}
	e := newTestServer(src)

	for _, target := range []string{
		"/api/anomalies",
		"/api/anomalies?coin=Bit%20Coin",
		"/api/anomalies?coin=bitcoin&eps=0",
		"/api/anomalies?coin=bitcoin&contamination=0.9",
	} {
		if rec := get(e, target); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status %d, want 400", target, rec.Code)
		}
	}
	if src.calls != 0 {
		t.Fatalf("invalid requests must not reach the provider")
	}
}

func TestAnomaliesErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"shape", &models.ShapeMismatchError{Field: "prices", Dimension: models.DimRows, Got: 90, Want: 91}, http.StatusBadGateway},
		{"not found", &coingecko.StatusError{StatusCode: http.StatusNotFound}, http.StatusNotFound},
		{"throttled", &coingecko.StatusError{StatusCode: http.StatusTooManyRequests}, http.StatusTooManyRequests},
		{"upstream", errors.New("connection reset"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestServer(&stubSource{chart: outlierChart(), err: tt.err})
			if rec := get(e, "/api/anomalies?coin=bitcoin"); rec.Code != tt.want {
				t.Fatalf("status %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestWindow(t *testing.T) {
	e := newTestServer(&stubSource{})

	rec := get(e, "/api/window?date=2023-01-03")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	var w map[string]string
	decode(t, rec, &w)
	if w["start"] != "2022-12-27" || w["end"] != "2023-01-10" {
		t.Fatalf("unexpected window %v", w)
	}

	if rec := get(e, "/api/window?date=03/01/2023"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date: status %d", rec.Code)
	}
}

func TestRateLimited(t *testing.T) {
	e := newTestServer(&stubSource{}, WithRateLimiter(denyAll{}))
	if rec := get(e, "/api/window?date=2023-01-03"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status %d, want 429", rec.Code)
	}
	if rec := get(e, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("healthz must bypass the limiter, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	e := newTestServer(&stubSource{},
		WithHealthCheck("redis", func(context.Context) error { return nil }),
		WithHealthCheck("clickhouse", func(context.Context) error { return errors.New("dial tcp: refused") }),
	)
	rec := get(e, "/healthz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", rec.Code)
	}
	var deps map[string]string
	decode(t, rec, &deps)
	if deps["redis"] != "ok" || deps["clickhouse"] == "ok" {
		t.Fatalf("unexpected deps %v", deps)
	}
}
