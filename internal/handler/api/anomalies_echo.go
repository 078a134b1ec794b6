package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"CoinPulse/internal/domain/models"
	"CoinPulse/internal/service/cache"
	"CoinPulse/internal/service/coingecko"
	svcmetrics "CoinPulse/internal/service/metrics"
	"CoinPulse/internal/services/analytics"
	"CoinPulse/internal/usecase"
	xhttp "CoinPulse/pkg/http"
	"CoinPulse/pkg/http/middleware"
	xlogger "CoinPulse/pkg/logger"
)

const healthTimeout = 2 * time.Second

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// AnomaliesEchoHandler serves the detection pipeline over HTTP.
type AnomaliesEchoHandler struct {
	logger   *xlogger.Logger
	pipeline *usecase.AnomalyPipeline
	cache    cache.BytesCache
	ttl      time.Duration
	limiter  middleware.Allower
	metrics  *svcmetrics.AnalyticsMetrics
	checks   map[string]HealthCheck
}

// HandlerOption configures AnomaliesEchoHandler.
type HandlerOption func(*AnomaliesEchoHandler)

// WithReportCache caches reports per coin and parameters for ttl.
func WithReportCache(c cache.BytesCache, ttl time.Duration) HandlerOption {
	return func(h *AnomaliesEchoHandler) {
		h.cache = c
		h.ttl = ttl
	}
}

// WithRateLimiter limits /api requests per client IP.
func WithRateLimiter(a middleware.Allower) HandlerOption {
	return func(h *AnomaliesEchoHandler) { h.limiter = a }
}

func WithAnalyticsMetrics(m *svcmetrics.AnalyticsMetrics) HandlerOption {
	return func(h *AnomaliesEchoHandler) { h.metrics = m }
}

// WithHealthCheck adds a named dependency check to /healthz.
func WithHealthCheck(name string, check HealthCheck) HandlerOption {
	return func(h *AnomaliesEchoHandler) {
		if check != nil {
			h.checks[name] = check
		}
	}
}

func NewAnomaliesEchoHandler(logger *xlogger.Logger, pipeline *usecase.AnomalyPipeline, opts ...HandlerOption) *AnomaliesEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	h := &AnomaliesEchoHandler{
		logger:   logger,
		pipeline: pipeline,
		checks:   make(map[string]HealthCheck),
	}
	for _, opt := range opts {
		opt(h)
	}
	if err := xhttp.RegisterValidation("coinid", coingecko.ValidCoin); err != nil {
		logger.Error("register coinid validation", xlogger.Error(err))
	}
	return h
}

var _ xhttp.Handler = (*AnomaliesEchoHandler)(nil)

func (h *AnomaliesEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	if h.limiter != nil {
		g.Use(middleware.RateLimit(h.limiter))
	}
	g.GET("/anomalies", h.Anomalies)
	g.GET("/window", h.Window)
	e.GET("/healthz", h.Health)
}

// Anomalies runs detection (and optionally event queries) for one coin.
func (h *AnomaliesEchoHandler) Anomalies(c echo.Context) error {
	const endpoint = "anomalies"
	start := time.Now()
	defer func() { h.metrics.Observe(endpoint, time.Since(start)) }()

	req := &models.AnomalyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.metrics.Fail(endpoint, "validation")
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	key := reportKey(req)
	if h.cache != nil {
		var cached models.RunReport
		ok, err := cache.GetJSON(ctx, h.cache, key, &cached)
		if err != nil {
			h.logger.Warn("report cache read failed", xlogger.String("key", key), xlogger.Error(err))
		}
		h.metrics.Cache(ok)
		if ok {
			c.Response().Header().Set("X-Cache", "HIT")
			return xhttp.SuccessResponse(c, &cached)
		}
	}

	cfg := h.pipeline.Config()
	cfg.QueryEvents = req.QueryEvents
	cfg.Detectors.Eps = req.Eps
	cfg.Detectors.MinPts = req.MinPts
	cfg.Detectors.Contamination = req.Contamination

	report, err := h.pipeline.WithOverrides(cfg).Run(ctx, req.Coin)
	if err != nil {
		appErr := mapRunError(req.Coin, err)
		h.metrics.Fail(endpoint, appErr.Code)
		h.logger.Error("anomaly run failed",
			xlogger.String("coin", req.Coin),
			xlogger.Int("status", appErr.Status),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, appErr)
	}

	// aborted query segments are partial results; only complete reports are cached
	if h.cache != nil && h.ttl > 0 && report.State == models.StateDone {
		if err := cache.SetJSON(ctx, h.cache, key, report, h.ttl); err != nil {
			h.logger.Warn("report cache write failed", xlogger.String("key", key), xlogger.Error(err))
		}
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, report)
}

// Window returns the ±7 day query window for a date.
func (h *AnomaliesEchoHandler) Window(c echo.Context) error {
	const endpoint = "window"
	start := time.Now()
	defer func() { h.metrics.Observe(endpoint, time.Since(start)) }()

	req := &models.WindowRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.metrics.Fail(endpoint, "validation")
		return xhttp.BadRequestResponse(c, verr)
	}
	w, err := analytics.ResolveWindow(models.AnomalyDate(req.Date))
	if err != nil {
		h.metrics.Fail(endpoint, "resolve")
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithError(err))
	}
	return xhttp.SuccessResponse(c, map[string]string{
		"date":  string(w.Date),
		"start": w.StartDate(),
		"end":   w.EndDate(),
	})
}

// Health runs every registered dependency check.
func (h *AnomaliesEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	deps := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}
	return xhttp.DataResponse(c, status, deps)
}

func reportKey(req *models.AnomalyRequest) string {
	return fmt.Sprintf("report:%s:%t:%s:%d:%s",
		req.Coin,
		req.QueryEvents,
		strconv.FormatFloat(req.Eps, 'g', -1, 64),
		req.MinPts,
		strconv.FormatFloat(req.Contamination, 'g', -1, 64),
	)
}

func mapRunError(coin string, err error) *xhttp.AppError {
	var status *coingecko.StatusError
	switch {
	case errors.Is(err, models.ErrInvalidCoin):
		return xhttp.BadRequestErrorf("invalid coin id %q", coin).WithError(err)
	case errors.As(err, &status) && status.StatusCode == http.StatusNotFound:
		return xhttp.NotFoundError(fmt.Sprintf("coin %q not found", coin)).WithError(err)
	case errors.As(err, &status) && status.StatusCode == http.StatusTooManyRequests:
		return xhttp.TooManyRequestsError("market data provider rate limit reached").WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.NewAppError("ERR_TIMEOUT", "", "run timed out", http.StatusGatewayTimeout).WithError(err)
	case errors.Is(err, context.Canceled):
		return xhttp.NewAppError("ERR_CANCELED", "", "request canceled", 499).WithError(err)
	case errors.Is(err, models.ErrShapeMismatch),
		errors.Is(err, models.ErrUnordered),
		errors.Is(err, models.ErrNonFinite):
		return xhttp.BadGatewayError("market data has an unexpected shape").WithError(err)
	default:
		return xhttp.BadGatewayError("market data provider failed").WithError(err)
	}
}
