package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"CoinPulse/internal/domain/models"
	drepo "CoinPulse/internal/domain/repository"
	domsvc "CoinPulse/internal/domain/service"
	"CoinPulse/internal/services/analytics"
	"CoinPulse/pkg/logger"
	"CoinPulse/pkg/metrics"
)

// QueryPolicy decides which detector dates of a segment are sent to the event corpus.
type QueryPolicy string

const (
	PolicyUnion        QueryPolicy = "union"
	PolicyIntersection QueryPolicy = "intersection"
	PolicyDensity      QueryPolicy = models.DetectorDensity
	PolicyIsolation    QueryPolicy = models.DetectorIsolation
)

const (
	DefaultQueryPause = time.Second
	// NoQueryPause disables the pause between event queries.
	NoQueryPause time.Duration = -1
	DefaultMaxRecords = 250
	snapshotTimeout   = 5 * time.Second
)

// PipelineConfig holds every tunable of a run. Nothing is read from globals.
type PipelineConfig struct {
	Detectors      analytics.DetectorParams
	QueryEvents    bool
	QueryPause     time.Duration // zero means DefaultQueryPause, negative disables
	QueryPolicy    QueryPolicy
	ParallelDetect bool
	Keyword        string // empty means the coin id
	MaxRecords     int
}

// AnomalyPipeline runs LOAD -> RAW_METRICS -> DETECT_* -> QUERY_* for one coin.
type AnomalyPipeline struct {
	source    drepo.MarketDataSource
	events    domsvc.EventQuerier
	snapshots drepo.SnapshotSink
	metrics   drepo.Metrics
	log       *logger.Logger
	cfg       PipelineConfig

	detectors func() []domsvc.AnomalyDetector
	now       func() time.Time
}

// PipelineOption configures AnomalyPipeline.
type PipelineOption func(*AnomalyPipeline)

// WithSnapshotSink pushes standardized arrays and labels per segment.
func WithSnapshotSink(s drepo.SnapshotSink) PipelineOption {
	return func(p *AnomalyPipeline) { p.snapshots = s }
}

// WithDetectorFactory overrides the detector registry. The factory is called
// once per segment so detectors never share state across segments.
func WithDetectorFactory(f func() []domsvc.AnomalyDetector) PipelineOption {
	return func(p *AnomalyPipeline) {
		if f != nil {
			p.detectors = f
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *AnomalyPipeline) { p.now = now }
}

// NewAnomalyPipeline creates a pipeline. events may be nil when queries are disabled.
func NewAnomalyPipeline(
	source drepo.MarketDataSource,
	events domsvc.EventQuerier,
	m drepo.Metrics,
	log *logger.Logger,
	cfg PipelineConfig,
	opts ...PipelineOption,
) *AnomalyPipeline {
	cfg = cfg.normalize()
	if m == nil {
		m = metrics.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	p := &AnomalyPipeline{
		source:  source,
		events:  events,
		metrics: m,
		log:     log,
		cfg:     cfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the effective configuration.
func (p *AnomalyPipeline) Config() PipelineConfig { return p.cfg }

// WithOverrides returns a copy of the pipeline using cfg. Collaborators are shared.
func (p *AnomalyPipeline) WithOverrides(cfg PipelineConfig) *AnomalyPipeline {
	cp := *p
	cp.cfg = cfg.normalize()
	return &cp
}

func (c PipelineConfig) normalize() PipelineConfig {
	if c.QueryPause == 0 {
		c.QueryPause = DefaultQueryPause
	}
	if c.QueryPolicy == "" {
		c.QueryPolicy = PolicyUnion
	}
	if c.MaxRecords <= 0 || c.MaxRecords > DefaultMaxRecords {
		c.MaxRecords = DefaultMaxRecords
	}
	return c
}

func (p *AnomalyPipeline) newDetectors() []domsvc.AnomalyDetector {
	if p.detectors != nil {
		return p.detectors()
	}
	return analytics.NewDetectors(p.cfg.Detectors)
}

// run holds the per-invocation accumulators.
type run struct {
	report  *models.RunReport
	log     *logger.Logger
	queried bool
}

// Run executes the pipeline for coin. A load failure returns an error with an
// ABORTED report. Query failures never return an error: the affected segment is
// marked aborted and the report keeps every completed result.
func (p *AnomalyPipeline) Run(ctx context.Context, coin string) (*models.RunReport, error) {
	r := &run{
		report: &models.RunReport{
			RunID:     uuid.New().String(),
			Coin:      coin,
			StartedAt: p.now().UTC(),
		},
	}
	r.log = p.log.With(logger.String("run_id", r.report.RunID), logger.String("coin", coin))
	defer func() {
		r.report.FinishedAt = p.now().UTC()
		p.metrics.RecordRun(coin, r.report.State)
	}()

	p.enter(r, models.StateLoad)
	start := time.Now()
	chart, err := p.source.MarketChart(ctx, coin)
	if err != nil {
		return p.abort(r, "load", fmt.Errorf("fetch market chart: %w", err))
	}
	series, err := LoadSeries(chart)
	if err != nil {
		return p.abort(r, "load", fmt.Errorf("load series: %w", err))
	}
	p.metrics.RecordLatency("load", time.Since(start).Seconds())

	p.enter(r, models.StateRawMetrics)
	segs := models.Segments()
	r.report.Segments = make([]models.SegmentReport, len(segs))
	for i, seg := range segs {
		r.report.Segments[i] = models.SegmentReport{
			Segment:    seg,
			Stats:      analytics.ComputeStats(series[seg]),
			Detections: make(map[string]models.DetectionResult),
		}
	}

	start = time.Now()
	if p.cfg.ParallelDetect {
		var wg sync.WaitGroup
		for i, seg := range segs {
			wg.Add(1)
			go func(sr *models.SegmentReport, ts models.TimeSeries) {
				defer wg.Done()
				p.detectSegment(ctx, r, sr, ts)
			}(&r.report.Segments[i], series[seg])
		}
		wg.Wait()
		r.report.State = models.DetectState(segs[len(segs)-1])
	} else {
		for i, seg := range segs {
			p.enter(r, models.DetectState(seg))
			p.detectSegment(ctx, r, &r.report.Segments[i], series[seg])
		}
	}
	p.metrics.RecordLatency("detect", time.Since(start).Seconds())

	if err := ctx.Err(); err != nil {
		return p.abort(r, "detect", err)
	}

	if p.cfg.QueryEvents && p.events != nil {
		start = time.Now()
		for i, seg := range segs {
			p.enter(r, models.QueryState(seg))
			if err := p.querySegment(ctx, r, &r.report.Segments[i]); err != nil {
				// cancellation: mark what is left and stop
				for j := i + 1; j < len(segs); j++ {
					p.skipAll(&r.report.Segments[j], "run cancelled")
				}
				return p.abort(r, "query", err)
			}
		}
		p.metrics.RecordLatency("query", time.Since(start).Seconds())
	}

	final := models.StateDone
	for _, sr := range r.report.Segments {
		if sr.Aborted {
			final = models.StateAborted
		}
	}
	p.enter(r, final)
	r.log.Info("run finished",
		logger.String("state", string(final)),
		logger.Duration("elapsed_ms", p.now().Sub(r.report.StartedAt)),
	)
	return r.report, nil
}

func (p *AnomalyPipeline) enter(r *run, s models.RunState) {
	r.report.State = s
	r.log.Debug("state", logger.String("state", string(s)))
}

func (p *AnomalyPipeline) abort(r *run, stage string, err error) (*models.RunReport, error) {
	r.report.State = models.StateAborted
	p.metrics.RecordError(stage)
	r.log.Error("run aborted", logger.String("stage", stage), logger.Error(err))
	return r.report, err
}

// detectSegment fills sr. It writes only to sr, so segments may run concurrently.
func (p *AnomalyPipeline) detectSegment(ctx context.Context, r *run, sr *models.SegmentReport, ts models.TimeSeries) {
	detectors := p.newDetectors()

	probe := analytics.NewScaler().FitTransform(ts)
	if probe.Degenerate {
		sr.Degenerate = true
		sr.Warnings = append(sr.Warnings, models.ErrDegenerateScale.Error())
		r.log.Warn("segment skipped", logger.String("segment", string(ts.Segment)), logger.Error(models.ErrDegenerateScale))
		for _, det := range detectors {
			sr.Detections[det.Name()] = models.DetectionResult{
				Detector:  det.Name(),
				Positions: []int{},
				Dates:     []models.AnomalyDate{},
			}
		}
		sr.QueryDates = []models.AnomalyDate{}
		return
	}

	snapshot := models.SegmentSnapshot{
		RunID:      r.report.RunID,
		Coin:       r.report.Coin,
		Segment:    ts.Segment,
		Timestamps: make([]int64, ts.Len()),
		Labels:     make(map[string][]int, len(detectors)),
	}
	for i, pt := range ts.Points {
		snapshot.Timestamps[i] = pt.Timestamp
	}

	for _, det := range detectors {
		// fresh scaler per detector invocation
		std := analytics.NewScaler().FitTransform(ts)
		snapshot.Standardized = std.Values

		res := models.DetectionResult{Detector: det.Name()}
		labels, err := det.Detect(ctx, std)
		if err == nil {
			res.Labels = labels.Labels
			res.Dates, res.Positions, err = analytics.ResolveDates(labels, ts, det.IsAnomalous)
		}
		if err != nil {
			res.Error = err.Error()
			res.Positions, res.Dates = []int{}, []models.AnomalyDate{}
			p.metrics.RecordError("detect")
			r.log.Error("detector failed",
				logger.String("segment", string(ts.Segment)),
				logger.String("detector", det.Name()),
				logger.Error(err),
			)
		} else {
			snapshot.Labels[det.Name()] = labels.Labels
			p.metrics.RecordAnomalies(ts.Segment, det.Name(), len(res.Positions))
			r.log.Info("segment detected",
				logger.String("segment", string(ts.Segment)),
				logger.String("detector", det.Name()),
				logger.Int("anomalies", len(res.Positions)),
			)
		}
		sr.Detections[det.Name()] = res
	}

	sr.QueryDates = SelectQueryDates(p.cfg.QueryPolicy, sr.Detections)
	p.pushSnapshot(ctx, r, snapshot)
}

// pushSnapshot is best-effort: failures are logged and never affect the run.
func (p *AnomalyPipeline) pushSnapshot(ctx context.Context, r *run, s models.SegmentSnapshot) {
	if p.snapshots == nil || len(s.Labels) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()
	if err := p.snapshots.PushSnapshot(ctx, s); err != nil {
		p.metrics.RecordError("snapshot")
		r.log.Warn("snapshot push failed", logger.String("segment", string(s.Segment)), logger.Error(err))
	}
}

// querySegment issues one query per date, strictly in sequence. The first
// failure aborts the rest of this segment only. A non-nil return means the
// context was cancelled.
func (p *AnomalyPipeline) querySegment(ctx context.Context, r *run, sr *models.SegmentReport) error {
	keyword := p.cfg.Keyword
	if keyword == "" {
		keyword = r.report.Coin
	}
	sr.Queries = make([]models.QueryOutcome, 0, len(sr.QueryDates))

	for i, date := range sr.QueryDates {
		if r.queried && p.cfg.QueryPause > 0 {
			if err := sleep(ctx, p.cfg.QueryPause); err != nil {
				p.skipFrom(sr, i, "run cancelled")
				return err
			}
		}
		r.queried = true

		win, err := analytics.ResolveWindow(date)
		if err == nil {
			var res models.EventResult
			res, err = p.events.Query(ctx, models.EventQuery{Window: win, Keyword: keyword, MaxRecords: p.cfg.MaxRecords})
			switch {
			case err != nil:
				err = &models.QueryError{Date: date, Reason: "query failed", Err: err}
			case res.Empty():
				err = &models.QueryError{Date: date, Reason: "empty result"}
			default:
				sr.Queries = append(sr.Queries, models.QueryOutcome{Window: win, Status: models.QueryOK, Result: &res})
				p.metrics.RecordQuery(sr.Segment, models.QueryOK)
				continue
			}
		}

		sr.Queries = append(sr.Queries, models.QueryOutcome{Window: win, Status: models.QueryFailed, Error: err.Error()})
		sr.Aborted = true
		p.metrics.RecordQuery(sr.Segment, models.QueryFailed)
		r.log.Warn("event query failed, skipping remaining dates",
			logger.String("segment", string(sr.Segment)),
			logger.String("date", string(date)),
			logger.Int("skipped", len(sr.QueryDates)-i-1),
			logger.Error(err),
		)
		p.skipFrom(sr, i+1, "previous query failed")
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return ctxErr
		}
		return nil
	}
	return nil
}

func (p *AnomalyPipeline) skipAll(sr *models.SegmentReport, reason string) {
	if len(sr.QueryDates) == 0 {
		return
	}
	sr.Queries = make([]models.QueryOutcome, 0, len(sr.QueryDates))
	p.skipFrom(sr, 0, reason)
}

func (p *AnomalyPipeline) skipFrom(sr *models.SegmentReport, from int, reason string) {
	if from < len(sr.QueryDates) {
		sr.Aborted = true
	}
	for _, date := range sr.QueryDates[from:] {
		win, _ := analytics.ResolveWindow(date)
		sr.Queries = append(sr.Queries, models.QueryOutcome{Window: win, Status: models.QuerySkipped, Error: reason})
		p.metrics.RecordQuery(sr.Segment, models.QuerySkipped)
	}
}

// SelectQueryDates combines the detectors' dates of one segment according to
// policy. The result is in ascending date order.
func SelectQueryDates(policy QueryPolicy, dets map[string]models.DetectionResult) []models.AnomalyDate {
	out := make([]models.AnomalyDate, 0)
	switch policy {
	case PolicyDensity, PolicyIsolation:
		out = append(out, dets[string(policy)].Dates...)
	case PolicyIntersection:
		counts := make(map[models.AnomalyDate]int)
		for _, d := range dets {
			if d.Error != "" {
				return out
			}
			for _, date := range d.Dates {
				counts[date]++
			}
		}
		for date, n := range counts {
			if n == len(dets) {
				out = append(out, date)
			}
		}
	default:
		seen := make(map[models.AnomalyDate]struct{})
		for _, d := range dets {
			for _, date := range d.Dates {
				if _, ok := seen[date]; !ok {
					seen[date] = struct{}{}
					out = append(out, date)
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
