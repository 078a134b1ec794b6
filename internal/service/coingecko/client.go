package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"CoinPulse/internal/domain/models"
	drepo "CoinPulse/internal/domain/repository"
	"CoinPulse/internal/service/cache"
	phttp "CoinPulse/pkg/http"
	"CoinPulse/pkg/logger"
)

const (
	DefaultBaseURL = "https://api.coingecko.com/api/v3"
	// Days of history requested; the provider returns Days+1 daily rows.
	Days     = 90
	apiKeyHd = "x-cg-demo-api-key"
)

var coinPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// ValidCoin reports whether id looks like a provider coin slug.
func ValidCoin(id string) bool {
	return len(id) <= 64 && coinPattern.MatchString(id)
}

type Config struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	RequestsPerSec float64
	RetryInitial   time.Duration
	MaxElapsed     time.Duration
	CacheTTL       time.Duration
}

// Client fetches market charts with pacing, retries and an optional cache.
type Client struct {
	http    *phttp.Client
	cfg     Config
	limiter *rate.Limiter
	cache   cache.BytesCache
	log     *logger.Logger
}

type Option func(*Client)

// WithCache enables response caching under "chart:{coin}".
func WithCache(c cache.BytesCache) Option {
	return func(cl *Client) { cl.cache = c }
}

func WithLogger(l *logger.Logger) Option {
	return func(cl *Client) { cl.log = l }
}

func New(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 0.5
	}
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = 500 * time.Millisecond
	}
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = 30 * time.Second
	}
	c := &Client{
		http:    phttp.NewClient(phttp.WithTimeout(cfg.Timeout)),
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError is a non-2xx provider response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("coingecko: status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// MarketChart returns the raw 90-day daily chart for coin. Shape is not
// validated here.
func (c *Client) MarketChart(ctx context.Context, coin string) (models.MarketChart, error) {
	if !ValidCoin(coin) {
		return models.MarketChart{}, fmt.Errorf("%q: %w", coin, models.ErrInvalidCoin)
	}

	key := "chart:" + coin
	if c.cache != nil {
		var chart models.MarketChart
		ok, err := cache.GetJSON(ctx, c.cache, key, &chart)
		if err != nil {
			c.log.Warn("chart cache read failed", logger.String("coin", coin), logger.Error(err))
		} else if ok {
			return chart, nil
		}
	}

	body, err := c.fetch(ctx, coin)
	if err != nil {
		return models.MarketChart{}, err
	}

	var chart models.MarketChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return models.MarketChart{}, fmt.Errorf("coingecko: decode chart: %w", err)
	}

	if c.cache != nil && c.cfg.CacheTTL > 0 {
		if err := c.cache.SetBytes(ctx, key, body, c.cfg.CacheTTL); err != nil {
			c.log.Warn("chart cache write failed", logger.String("coin", coin), logger.Error(err))
		}
	}
	return chart, nil
}

func (c *Client) fetch(ctx context.Context, coin string) ([]byte, error) {
	headers := map[string]string{"accept": "application/json"}
	if c.cfg.APIKey != "" {
		headers[apiKeyHd] = c.cfg.APIKey
	}
	opts := &phttp.RequestOptions{
		Method:  phttp.MethodGet,
		URL:     strings.TrimRight(c.cfg.BaseURL, "/") + "/coins/" + coin + "/market_chart",
		Headers: headers,
		QueryParams: map[string][]string{
			"vs_currency": {"usd"},
			"days":        {fmt.Sprint(Days)},
			"interval":    {"daily"},
		},
	}

	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.http.SendRequest(ctx, opts)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			se := &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(b), 200)}
			if se.retryable() {
				return se
			}
			return backoff.Permanent(se)
		}
		if len(strings.TrimSpace(string(b))) == 0 {
			return backoff.Permanent(errors.New("coingecko: empty body"))
		}
		body = b
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.RetryInitial
	bo.MaxElapsedTime = c.cfg.MaxElapsed
	notify := func(err error, wait time.Duration) {
		c.log.Warn("market chart fetch retry",
			logger.String("coin", coin),
			logger.Int("attempt", attempt),
			logger.Duration("wait_ms", wait),
			logger.Error(err),
		)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify); err != nil {
		return nil, fmt.Errorf("coingecko: market chart %s: %w", coin, err)
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ drepo.MarketDataSource = (*Client)(nil)
