package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"CoinPulse/internal/domain/models"
	domrepo "CoinPulse/internal/domain/repository"
	pkgch "CoinPulse/pkg/clickhouse"
	applogger "CoinPulse/pkg/logger"
)

// ReportSchema creates the tables used by CHReportStore.
var ReportSchema = []string{
	`CREATE DATABASE IF NOT EXISTS coinpulse`,
	`CREATE TABLE IF NOT EXISTS coinpulse.anomaly_runs (
        run_id      String,
        coin        LowCardinality(String),
        state       LowCardinality(String),
        started_at  DateTime64(3, 'UTC'),
        finished_at DateTime64(3, 'UTC')
    ) ENGINE = ReplacingMergeTree
    ORDER BY (coin, started_at, run_id)`,
	`CREATE TABLE IF NOT EXISTS coinpulse.anomaly_dates (
        run_id   String,
        coin     LowCardinality(String),
        segment  LowCardinality(String),
        detector LowCardinality(String),
        date     Date,
        query    LowCardinality(String),
        articles UInt32
    ) ENGINE = ReplacingMergeTree
    ORDER BY (coin, segment, date, detector, run_id)`,
}

// anomalyRow is one flagged date of one detector on one segment.
type anomalyRow struct {
	RunID    string
	Coin     string
	Segment  string
	Detector string
	Date     time.Time
	Query    string
	Articles uint32
}

// CHReportStore persists run reports into ClickHouse.
type CHReportStore struct {
	db *sql.DB
	l  *applogger.Logger
}

var _ domrepo.ReportStore = (*CHReportStore)(nil)

func NewCHReportStore(ch *pkgch.Client, l *applogger.Logger) *CHReportStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHReportStore{db: ch.DB(), l: l}
}

// SaveReport writes the run header, then every flagged date as one batch.
func (s *CHReportStore) SaveReport(ctx context.Context, r *models.RunReport) error {
	if r == nil {
		return nil
	}
	start := time.Now()
	rows, err := reportRows(r)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO coinpulse.anomaly_runs (run_id, coin, state, started_at, finished_at) VALUES (?, ?, ?, ?, ?)`,
		r.RunID, r.Coin, string(r.State), r.StartedAt, r.FinishedAt,
	); err != nil {
		s.l.Error("clickhouse save_report run insert error",
			applogger.String("run_id", r.RunID),
			applogger.Error(err),
		)
		return fmt.Errorf("insert run: %w", err)
	}

	if len(rows) > 0 {
		if err := s.insertDates(ctx, rows); err != nil {
			s.l.Error("clickhouse save_report dates insert error",
				applogger.String("run_id", r.RunID),
				applogger.Error(err),
			)
			return err
		}
	}

	s.l.Info("clickhouse save_report ok",
		applogger.String("run_id", r.RunID),
		applogger.String("coin", r.Coin),
		applogger.Int("rows", len(rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *CHReportStore) insertDates(ctx context.Context, rows []anomalyRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO coinpulse.anomaly_dates (run_id, coin, segment, detector, date, query, articles)`)
	if err != nil {
		return fmt.Errorf("prepare dates: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.RunID, row.Coin, row.Segment, row.Detector, row.Date, row.Query, row.Articles,
		); err != nil {
			return fmt.Errorf("append date row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit dates: %w", err)
	}
	return nil
}

// Close is a no-op; the pool is owned by the clickhouse client.
func (s *CHReportStore) Close() error {
	return nil
}

// reportRows flattens a report into per-date rows, joined with the query
// outcome for that date. Dates never queried carry an empty query status.
func reportRows(r *models.RunReport) ([]anomalyRow, error) {
	out := make([]anomalyRow, 0)
	for _, seg := range r.Segments {
		outcomes := make(map[models.AnomalyDate]models.QueryOutcome, len(seg.Queries))
		for _, q := range seg.Queries {
			outcomes[q.Window.Date] = q
		}

		detectors := make([]string, 0, len(seg.Detections))
		for name := range seg.Detections {
			detectors = append(detectors, name)
		}
		sort.Strings(detectors)

		for _, name := range detectors {
			for _, d := range seg.Detections[name].Dates {
				day, err := d.Time()
				if err != nil {
					return nil, fmt.Errorf("segment %s: parse date %q: %w", seg.Segment, d, err)
				}
				row := anomalyRow{
					RunID:    r.RunID,
					Coin:     r.Coin,
					Segment:  string(seg.Segment),
					Detector: name,
					Date:     day,
				}
				if q, ok := outcomes[d]; ok {
					row.Query = string(q.Status)
					if q.Result != nil {
						row.Articles = uint32(len(q.Result.Articles))
					}
				}
				out = append(out, row)
			}
		}
	}
	return out, nil
}
