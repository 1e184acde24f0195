// Package sink persists finished run results. The Postgres sink writes one
// row per run plus the full per-frame sample series.
package sink

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/michaelmahersoftware/experimental-hub-test/internal/domain"
	"github.com/michaelmahersoftware/experimental-hub-test/internal/ports"
)

// sampleChunkSize bounds the number of rows per multi-row INSERT so the
// statement stays under Postgres parameter limits (8 args per sample).
const sampleChunkSize = 500

type PostgresSink struct {
	db           *sql.DB
	runsTable    string
	samplesTable string
}

func NewPostgresSink(db *sql.DB, runsTable, samplesTable string) *PostgresSink {
	return &PostgresSink{db: db, runsTable: runsTable, samplesTable: samplesTable}
}

func (p *PostgresSink) Name() string { return "postgres" }

// WriteRun inserts the run summary and its samples in one transaction. The
// run row carries a unique run_id, so retried writes are idempotent.
func (p *PostgresSink) WriteRun(result *domain.RunResult, samples []domain.Sample) error {
	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	runQuery := fmt.Sprintf(`INSERT INTO %s (run_id, session_id, participant_id, started_at, stopped_at, sample_count, invalid_count, invalid_rate, latency_mean_ms, latency_median_ms, decode_cost_mean_ms, decode_cost_median_ms, fps_mean, fps_median, duration_ms) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15) ON CONFLICT (run_id) DO NOTHING`, p.runsTable)
	if _, err := tx.Exec(runQuery,
		result.RunID,
		result.SessionID,
		result.ParticipantID,
		result.StartedAt,
		result.StoppedAt,
		result.SampleCount,
		result.InvalidCount,
		result.InvalidRate,
		result.LatencyMeanMs,
		result.LatencyMedianMs,
		result.DecodeCostMeanMs,
		result.DecodeCostMedianMs,
		result.FPSMean,
		result.FPSMedian,
		result.DurationMs,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for start := 0; start < len(samples); start += sampleChunkSize {
		end := start + sampleChunkSize
		if end > len(samples) {
			end = len(samples)
		}
		if err := p.writeSampleChunk(tx, result.RunID, samples[start:end]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (p *PostgresSink) writeSampleChunk(tx *sql.Tx, runID string, samples []domain.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(p.samplesTable)
	b.WriteString(" (run_id, frame_index, latency_ms, decode_cost_ms, fps, width, height, timestamp_ms) VALUES ")

	args := make([]any, 0, len(samples)*8)
	for i, s := range samples {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4, len(args)+5, len(args)+6, len(args)+7, len(args)+8))

		args = append(args,
			runID,
			s.FrameIndex,
			s.LatencyMs,
			s.DecodeCostMs,
			s.FPS,
			s.Width,
			s.Height,
			s.Timestamp,
		)
	}

	b.WriteString(" ON CONFLICT (run_id, frame_index) DO NOTHING")

	if _, err := tx.Exec(b.String(), args...); err != nil {
		return fmt.Errorf("insert samples: %w", err)
	}
	return nil
}

var _ ports.ResultSink = (*PostgresSink)(nil)
