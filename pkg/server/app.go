package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"CoinPulse/internal/domain/models"
	drepo "CoinPulse/internal/domain/repository"
	"CoinPulse/internal/services/analytics"
	"CoinPulse/internal/usecase"
	"CoinPulse/pkg/config"
	xhttp "CoinPulse/pkg/http"
	applogger "CoinPulse/pkg/logger"
)

// Modes accepted by Run.
const (
	ModeRun   = "run"
	ModeServe = "serve"
)

type namedCloser struct {
	name string
	c    io.Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	pipeline   *usecase.AnomalyPipeline
	handler    xhttp.Handler
	store      drepo.ReportStore
	publisher  drepo.ReportPublisher
	closers    []namedCloser
	httpServer *xhttp.Server
}

// Option configures App.
type Option func(*App)

func WithHandler(h xhttp.Handler) Option {
	return func(a *App) { a.handler = h }
}

// WithReportStore persists every finished report in run mode.
func WithReportStore(s drepo.ReportStore) Option {
	return func(a *App) { a.store = s }
}

// WithReportPublisher publishes every finished report in run mode.
func WithReportPublisher(p drepo.ReportPublisher) Option {
	return func(a *App) { a.publisher = p }
}

// WithCloser registers a resource closed on shutdown, in registration order.
func WithCloser(name string, c io.Closer) Option {
	return func(a *App) {
		if c != nil {
			a.closers = append(a.closers, namedCloser{name: name, c: c})
		}
	}
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, pipeline *usecase.AnomalyPipeline, opts ...Option) *App {
	if l == nil {
		l = applogger.Nop()
	}
	a := &App{cfg: cfg, log: l, pipeline: pipeline}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes mode until it completes or SIGINT/SIGTERM arrives, then releases resources.
func (a *App) Run(mode string, coins []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch mode {
	case ModeRun:
		err = a.RunCoins(ctx, coins)
	case ModeServe:
		err = a.Serve(ctx)
	default:
		err = fmt.Errorf("unknown mode %q", mode)
	}

	a.shutdown()
	return err
}

// RunCoins runs the pipeline for each coin in order. A failed coin is logged
// and the next one still runs; the joined failures are returned.
func (a *App) RunCoins(ctx context.Context, coins []string) error {
	if len(coins) == 0 {
		coins = a.cfg.Coins
	}
	var errs []error
	for _, coin := range coins {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		report, err := a.pipeline.Run(ctx, coin)
		if report != nil {
			a.summarize(report)
			a.deliver(ctx, report)
		}
		if err != nil {
			a.log.Error("coin run failed", applogger.String("coin", coin), applogger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", coin, err))
		}
	}
	return errors.Join(errs...)
}

// deliver persists and publishes a report. Failures are logged only.
func (a *App) deliver(ctx context.Context, r *models.RunReport) {
	if a.store != nil {
		if err := a.store.SaveReport(ctx, r); err != nil {
			a.log.Error("save report failed", applogger.String("run_id", r.RunID), applogger.Error(err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.PublishReport(ctx, r); err != nil {
			a.log.Error("publish report failed", applogger.String("run_id", r.RunID), applogger.Error(err))
		}
	}
}

func (a *App) summarize(r *models.RunReport) {
	for _, sr := range r.Segments {
		fields := []applogger.Field{
			applogger.String("coin", r.Coin),
			applogger.String("segment", string(sr.Segment)),
			applogger.String("max", analytics.FormatUSD(sr.Stats.Max)),
			applogger.String("min", analytics.FormatUSD(sr.Stats.Min)),
			applogger.String("mean", analytics.FormatUSD(sr.Stats.Mean)),
			applogger.Float64("stddev", sr.Stats.StdDev),
			applogger.Int("query_dates", len(sr.QueryDates)),
			applogger.Int("queries", len(sr.Queries)),
			applogger.Bool("aborted", sr.Aborted),
		}
		for name, det := range sr.Detections {
			fields = append(fields, applogger.Int(name, len(det.Dates)))
		}
		a.log.Info("segment summary", fields...)
	}
	a.log.Info("run summary",
		applogger.String("run_id", r.RunID),
		applogger.String("coin", r.Coin),
		applogger.String("state", string(r.State)),
		applogger.Duration("elapsed_ms", r.FinishedAt.Sub(r.StartedAt)),
	)
}

// Serve runs the HTTP API until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	a.httpServer = xhttp.NewServer(a.handler, a.log,
		xhttp.WithHost(a.cfg.Server.Host),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithSlowRequest(a.cfg.Server.SlowRequest),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")

	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		return err
	}
	return nil
}

// shutdown releases resources. The log collector is closed first so its last
// digest still goes out through the producer.
func (a *App) shutdown() {
	a.log.Info("shutting down")
	a.log.RemoveCollector()

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("report publisher close error", applogger.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("report store close error", applogger.Error(err))
		}
	}
	for _, nc := range a.closers {
		if err := nc.c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", nc.name), applogger.Error(err))
		}
	}
	a.log.Info("shutdown complete")
}
