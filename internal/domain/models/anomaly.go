package models

import "time"

const (
	// NoiseLabel marks density-unreachable points.
	NoiseLabel = -1
	// InlierLabel and OutlierLabel are the isolation detector labels.
	InlierLabel  = 1
	OutlierLabel = -1
	// WindowDays is the half-width of a query window in calendar days.
	WindowDays = 7
)

// Detector names.
const (
	DetectorDensity   = "dbscan"
	DetectorIsolation = "isolation_forest"
)

// LabelSet maps position -> label for one detector over one segment.
type LabelSet struct {
	Detector string `json:"detector"`
	Labels   []int  `json:"labels"`
}

// AnomalyDate is a YYYY-MM-DD calendar date.
type AnomalyDate string

// Time parses the date at UTC midnight.
func (d AnomalyDate) Time() (time.Time, error) {
	return time.Parse(DateLayout, string(d))
}

// QueryWindow bounds a news search around an anomaly date.
type QueryWindow struct {
	Date  AnomalyDate `json:"date"`
	Start time.Time   `json:"start"`
	End   time.Time   `json:"end"`
}

// StartDate returns the window start as YYYY-MM-DD.
func (w QueryWindow) StartDate() string { return w.Start.Format(DateLayout) }

// EndDate returns the window end as YYYY-MM-DD.
func (w QueryWindow) EndDate() string { return w.End.Format(DateLayout) }

// DetectionResult is the resolved output of one detector on one segment.
type DetectionResult struct {
	Detector  string        `json:"detector"`
	Labels    []int         `json:"labels,omitempty"`
	Positions []int         `json:"positions"`
	Dates     []AnomalyDate `json:"dates"`
	Error     string        `json:"error,omitempty"`
}

// QueryStatus is the outcome of a single event query.
type QueryStatus string

const (
	QueryOK      QueryStatus = "ok"
	QueryFailed  QueryStatus = "failed"
	QuerySkipped QueryStatus = "skipped"
)

// QueryOutcome records one per-date event query.
type QueryOutcome struct {
	Window QueryWindow  `json:"window"`
	Status QueryStatus  `json:"status"`
	Result *EventResult `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// SegmentReport aggregates everything produced for one segment.
type SegmentReport struct {
	Segment    Segment                    `json:"segment"`
	Stats      SeriesStats                `json:"stats"`
	Degenerate bool                       `json:"degenerate"`
	Detections map[string]DetectionResult `json:"detections"`
	QueryDates []AnomalyDate              `json:"query_dates"`
	Queries    []QueryOutcome             `json:"queries,omitempty"`
	Aborted    bool                       `json:"aborted"`
	Warnings   []string                   `json:"warnings,omitempty"`
}

// RunState is a pipeline state.
type RunState string

const (
	StateLoad         RunState = "LOAD"
	StateRawMetrics   RunState = "RAW_METRICS"
	StateDetectPrice  RunState = "DETECT_PRICE"
	StateDetectVolume RunState = "DETECT_VOLUME"
	StateDetectMCap   RunState = "DETECT_MCAP"
	StateQueryPrice   RunState = "QUERY_PRICE"
	StateQueryVolume  RunState = "QUERY_VOLUME"
	StateQueryMCap    RunState = "QUERY_MCAP"
	StateDone         RunState = "DONE"
	StateAborted      RunState = "ABORTED"
)

// DetectState returns the detection state for a segment.
func DetectState(s Segment) RunState {
	switch s {
	case SegmentVolume:
		return StateDetectVolume
	case SegmentMarketCap:
		return StateDetectMCap
	default:
		return StateDetectPrice
	}
}

// QueryState returns the query state for a segment.
func QueryState(s Segment) RunState {
	switch s {
	case SegmentVolume:
		return StateQueryVolume
	case SegmentMarketCap:
		return StateQueryMCap
	default:
		return StateQueryPrice
	}
}

// RunReport is the result of one pipeline run for one coin.
type RunReport struct {
	RunID      string          `json:"run_id"`
	Coin       string          `json:"coin"`
	State      RunState        `json:"state"`
	Segments   []SegmentReport `json:"segments"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Segment returns the report of a segment, or nil.
func (r *RunReport) Segment(s Segment) *SegmentReport {
	for i := range r.Segments {
		if r.Segments[i].Segment == s {
			return &r.Segments[i]
		}
	}
	return nil
}

// SegmentSnapshot is the visualization payload pushed per segment.
type SegmentSnapshot struct {
	RunID        string           `json:"run_id"`
	Coin         string           `json:"coin"`
	Segment      Segment          `json:"segment"`
	Timestamps   []int64          `json:"timestamps"`
	Standardized []float64        `json:"standardized"`
	Labels       map[string][]int `json:"labels"`
}
