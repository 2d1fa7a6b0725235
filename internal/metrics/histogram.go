package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"time"
)

// LatencyBuckets defines histogram buckets in microseconds
var LatencyBuckets = []int{50, 100, 500, 1000, 5000, 10000, 50000, 100000}

// HistogramSchema creates the table the histogram writes to.
const HistogramSchema = `
CREATE TABLE IF NOT EXISTS latency_histogram (
	operation TEXT NOT NULL,
	bucket_us INTEGER NOT NULL,
	count INTEGER DEFAULT 0,
	timestamp INTEGER NOT NULL,
	PRIMARY KEY (operation, bucket_us, timestamp)
)`

// Histogram keeps per-operation latency counts in SQLite, bucketed into
// one-minute windows.
type Histogram struct {
	db     *sql.DB
	now    func() time.Time
	logger *slog.Logger
}

// HistogramOption configures a Histogram.
type HistogramOption func(*Histogram)

// WithLogger sets where failed Recorder writes are reported.
func WithLogger(logger *slog.Logger) HistogramOption {
	return func(h *Histogram) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHistogram creates a histogram over db. The table must exist; see
// HistogramSchema.
func NewHistogram(db *sql.DB, opts ...HistogramOption) *Histogram {
	h := &Histogram{
		db:     db,
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EnsureSchema creates the histogram table if needed.
func (h *Histogram) EnsureSchema(ctx context.Context) error {
	if _, err := h.db.ExecContext(ctx, HistogramSchema); err != nil {
		return fmt.Errorf("failed to create latency_histogram: %w", err)
	}
	return nil
}

// RecordLatency records one measurement for operation.
func (h *Histogram) RecordLatency(ctx context.Context, operation string, d time.Duration) error {
	bucket := findBucket(int(d.Microseconds()))

	_, err := h.db.ExecContext(ctx, `
		INSERT INTO latency_histogram (operation, bucket_us, count, timestamp)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(operation, bucket_us, timestamp)
		DO UPDATE SET count = count + 1
	`, operation, bucket, h.window())
	if err != nil {
		return fmt.Errorf("failed to record latency for %s: %w", operation, err)
	}
	return nil
}

// ObserveOp implements Recorder. Write failures are logged at Debug and never
// reach the caller.
func (h *Histogram) ObserveOp(op string, d time.Duration, _ error) {
	if err := h.RecordLatency(context.Background(), op, d); err != nil {
		h.logger.Debug("latency write failed", "op", op, "error", err)
	}
}

// ObserveDecision implements Recorder; decisions are not latencies.
func (h *Histogram) ObserveDecision(string, string, int) {}

func (h *Histogram) window() int64 {
	return h.now().Unix() / 60 * 60
}

func (h *Histogram) windowStart(windowMinutes int) int64 {
	return h.window() - int64(windowMinutes*60)
}

// findBucket finds the appropriate bucket for a latency value
func findBucket(latencyUs int) int {
	for _, bucket := range LatencyBuckets {
		if latencyUs <= bucket {
			return bucket
		}
	}
	return LatencyBuckets[len(LatencyBuckets)-1]
}

type bucketCount struct {
	bucket int
	count  int
}

func (h *Histogram) buckets(ctx context.Context, operation string, windowMinutes int) ([]bucketCount, int, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT bucket_us, SUM(count) AS total_count
		FROM latency_histogram
		WHERE operation = ? AND timestamp >= ?
		GROUP BY bucket_us
		ORDER BY bucket_us ASC
	`, operation, h.windowStart(windowMinutes))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query histogram: %w", err)
	}
	defer rows.Close()

	var buckets []bucketCount
	total := 0
	for rows.Next() {
		var bc bucketCount
		if err := rows.Scan(&bc.bucket, &bc.count); err != nil {
			return nil, 0, err
		}
		buckets = append(buckets, bc)
		total += bc.count
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, fmt.Errorf("no data available for operation %s", operation)
	}
	return buckets, total, nil
}

// Percentiles holds calculated percentile values in microseconds
type Percentiles struct {
	Operation string  `json:"operation"`
	P50       float64 `json:"p50_us"`
	P95       float64 `json:"p95_us"`
	P99       float64 `json:"p99_us"`
	Count     int     `json:"count"`
}

// CalculatePercentiles calculates p50, p95, p99 for an operation
func (h *Histogram) CalculatePercentiles(ctx context.Context, operation string, windowMinutes int) (*Percentiles, error) {
	buckets, total, err := h.buckets(ctx, operation, windowMinutes)
	if err != nil {
		return nil, err
	}

	return &Percentiles{
		Operation: operation,
		P50:       calculatePercentile(buckets, total, 0.50),
		P95:       calculatePercentile(buckets, total, 0.95),
		P99:       calculatePercentile(buckets, total, 0.99),
		Count:     total,
	}, nil
}

// calculatePercentile interpolates linearly inside the bucket holding the
// target sample.
func calculatePercentile(buckets []bucketCount, totalCount int, percentile float64) float64 {
	if len(buckets) == 0 || totalCount == 0 {
		return 0
	}

	target := int(math.Ceil(float64(totalCount) * percentile))
	cumulative := 0

	for _, bc := range buckets {
		cumulative += bc.count
		if cumulative < target {
			continue
		}
		ratio := float64(target-(cumulative-bc.count)) / float64(bc.count)
		lower := 0
		if i := sort.SearchInts(LatencyBuckets, bc.bucket); i > 0 && i < len(LatencyBuckets) {
			lower = LatencyBuckets[i-1]
		}
		return float64(lower) + ratio*float64(bc.bucket-lower)
	}

	return float64(buckets[len(buckets)-1].bucket)
}

// Operations lists operations seen within the window, busiest first.
func (h *Histogram) Operations(ctx context.Context, windowMinutes int) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT operation, SUM(count) AS total_count
		FROM latency_histogram
		WHERE timestamp >= ?
		GROUP BY operation
		ORDER BY total_count DESC, operation ASC
	`, h.windowStart(windowMinutes))
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	var operations []string
	for rows.Next() {
		var operation string
		var count int
		if err := rows.Scan(&operation, &count); err != nil {
			return nil, err
		}
		operations = append(operations, operation)
	}
	return operations, rows.Err()
}

// AllPercentiles returns percentiles for every operation in the window.
func (h *Histogram) AllPercentiles(ctx context.Context, windowMinutes int) ([]*Percentiles, error) {
	ops, err := h.Operations(ctx, windowMinutes)
	if err != nil {
		return nil, err
	}
	out := make([]*Percentiles, 0, len(ops))
	for _, op := range ops {
		p, err := h.CalculatePercentiles(ctx, op, windowMinutes)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// BucketDistribution is one row of a distribution report
type BucketDistribution struct {
	Bucket     int
	Count      int
	Percentage float64
	Cumulative float64
}

// Distribution returns the share of samples per bucket for an operation
func (h *Histogram) Distribution(ctx context.Context, operation string, windowMinutes int) ([]BucketDistribution, error) {
	buckets, total, err := h.buckets(ctx, operation, windowMinutes)
	if err != nil {
		return nil, err
	}

	out := make([]BucketDistribution, len(buckets))
	cumulative := 0
	for i, bc := range buckets {
		cumulative += bc.count
		out[i] = BucketDistribution{
			Bucket:     bc.bucket,
			Count:      bc.count,
			Percentage: float64(bc.count) / float64(total) * 100.0,
			Cumulative: float64(cumulative) / float64(total) * 100.0,
		}
	}
	return out, nil
}

// CleanupOldData removes histogram rows older than retention
func (h *Histogram) CleanupOldData(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := h.now().Add(-retention).Unix()

	result, err := h.db.ExecContext(ctx, `DELETE FROM latency_histogram WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean latency_histogram: %w", err)
	}
	return result.RowsAffected()
}
