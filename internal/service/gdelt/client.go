package gdelt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"CoinPulse/internal/domain/models"
	domsvc "CoinPulse/internal/domain/service"
	phttp "CoinPulse/pkg/http"
	"CoinPulse/pkg/logger"
)

const (
	DefaultBaseURL = "https://api.gdeltproject.org/api/v2/doc/doc"
	MaxRecords     = 250
	// stampLayout is the DOC API datetime format.
	stampLayout = "20060102150405"
	// timelineLayout is how timeline buckets are dated.
	timelineLayout = "20060102T150405Z"
)

type Config struct {
	BaseURL        string
	Countries      []string
	Timeout        time.Duration
	RequestsPerSec float64
	ValidateLinks  bool
	LinkTimeout    time.Duration
	LinkWorkers    int
}

// Client queries the GDELT DOC 2.0 API for articles and coverage volume.
type Client struct {
	http    *phttp.Client
	links   *phttp.Client
	cfg     Config
	limiter *rate.Limiter
	log     *logger.Logger
}

type Option func(*Client)

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if len(cfg.Countries) == 0 {
		cfg.Countries = []string{"UK", "US"}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 1
	}
	if cfg.LinkTimeout <= 0 {
		cfg.LinkTimeout = 5 * time.Second
	}
	if cfg.LinkWorkers <= 0 {
		cfg.LinkWorkers = 8
	}
	c := &Client{
		http:    phttp.NewClient(phttp.WithTimeout(cfg.Timeout)),
		links:   phttp.NewClient(phttp.WithTimeout(cfg.LinkTimeout)),
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type artlistResponse struct {
	Articles []models.Article `json:"articles"`
}

type timelineResponse struct {
	Timeline []struct {
		Series string `json:"series"`
		Data   []struct {
			Date  string  `json:"date"`
			Value float64 `json:"value"`
		} `json:"data"`
	} `json:"timeline"`
}

// Query fetches the article list and the coverage timeline for one window.
// An empty result is returned as-is; callers decide whether that is a failure.
func (c *Client) Query(ctx context.Context, q models.EventQuery) (models.EventResult, error) {
	params := c.params(q)

	var arts artlistResponse
	if err := c.call(ctx, "artlist", params, &arts); err != nil {
		return models.EventResult{}, err
	}
	var tl timelineResponse
	if err := c.call(ctx, "timelinevol", params, &tl); err != nil {
		return models.EventResult{}, err
	}

	res := models.EventResult{Articles: arts.Articles}
	for _, s := range tl.Timeline {
		for _, d := range s.Data {
			ts, err := time.Parse(timelineLayout, d.Date)
			if err != nil {
				return models.EventResult{}, fmt.Errorf("gdelt: timeline date %q: %w", d.Date, err)
			}
			res.Timeline = append(res.Timeline, models.TimelinePoint{Date: ts, Value: d.Value})
		}
	}

	if c.cfg.ValidateLinks && len(res.Articles) > 0 {
		before := len(res.Articles)
		res.Articles = c.validate(ctx, res.Articles)
		res.Dropped = before - len(res.Articles)
	}
	return res, nil
}

// BuildQuery renders keyword restricted to the configured source countries.
func (c *Client) BuildQuery(keyword string) string {
	kw := strings.TrimSpace(keyword)
	switch {
	case strings.Contains(kw, " OR ") && !strings.HasPrefix(kw, "("):
		kw = "(" + kw + ")"
	case strings.Contains(kw, " ") && !strings.HasPrefix(kw, "(") && !strings.HasPrefix(kw, `"`):
		kw = strconv.Quote(kw)
	}
	if len(c.cfg.Countries) == 0 {
		return kw
	}
	parts := make([]string, len(c.cfg.Countries))
	for i, cc := range c.cfg.Countries {
		parts[i] = "sourcecountry:" + cc
	}
	if len(parts) == 1 {
		return kw + " " + parts[0]
	}
	return kw + " (" + strings.Join(parts, " OR ") + ")"
}

func (c *Client) params(q models.EventQuery) map[string][]string {
	n := q.MaxRecords
	if n <= 0 || n > MaxRecords {
		n = MaxRecords
	}
	return map[string][]string{
		"query":         {c.BuildQuery(q.Keyword)},
		"format":        {"json"},
		"maxrecords":    {strconv.Itoa(n)},
		"startdatetime": {q.Window.Start.UTC().Format(stampLayout)},
		"enddatetime":   {q.Window.End.UTC().Format(stampLayout)},
	}
}

func (c *Client) call(ctx context.Context, mode string, params map[string][]string, dest interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	qp := make(map[string][]string, len(params)+1)
	for k, v := range params {
		qp[k] = v
	}
	qp["mode"] = []string{mode}

	resp, err := c.http.SendRequest(ctx, &phttp.RequestOptions{
		Method:      phttp.MethodGet,
		URL:         c.cfg.BaseURL,
		QueryParams: qp,
	})
	if err != nil {
		return fmt.Errorf("gdelt %s: %w", mode, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("gdelt %s: read body: %w", mode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gdelt %s: unexpected status %d", mode, resp.StatusCode)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		// the API answers query syntax errors with plain text
		return fmt.Errorf("gdelt %s: %s: %w", mode, strings.TrimSpace(string(body)), err)
	}
	return nil
}

// validate drops articles whose link does not answer HEAD with 200.
func (c *Client) validate(ctx context.Context, in []models.Article) []models.Article {
	keep := make([]bool, len(in))
	sem := make(chan struct{}, c.cfg.LinkWorkers)
	var wg sync.WaitGroup
	for i := range in {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			err := c.checkLink(ctx, in[i].URL)
			if err != nil {
				c.log.Debug("article dropped", logger.String("url", in[i].URL), logger.Error(err))
				return
			}
			keep[i] = true
		}(i)
	}
	wg.Wait()

	out := make([]models.Article, 0, len(in))
	for i, a := range in {
		if keep[i] {
			out = append(out, a)
		}
	}
	return out
}

func (c *Client) checkLink(ctx context.Context, url string) error {
	resp, err := c.links.SendRequest(ctx, &phttp.RequestOptions{Method: phttp.MethodHead, URL: url})
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrArticleValidation, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", models.ErrArticleValidation, resp.StatusCode)
	}
	return nil
}

var _ domsvc.EventQuerier = (*Client)(nil)
