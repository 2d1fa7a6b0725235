package metrics

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) (*sql.DB, *Histogram) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	h := NewHistogram(db)
	if err := h.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return db, h
}

func insert(t *testing.T, db *sql.DB, op string, bucket, count int, ts int64) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO latency_histogram VALUES (?, ?, ?, ?)`, op, bucket, count, ts)
	if err != nil {
		t.Fatalf("Failed to insert test data: %v", err)
	}
}

func TestFindBucket(t *testing.T) {
	tests := []struct {
		latency  int
		expected int
	}{
		{5, 50},
		{50, 50},
		{75, 100},
		{150, 500},
		{999, 1000},
		{5001, 10000},
		{500000, 100000}, // Above max bucket
	}

	for _, tt := range tests {
		if got := findBucket(tt.latency); got != tt.expected {
			t.Errorf("findBucket(%d) = %d, expected %d", tt.latency, got, tt.expected)
		}
	}
}

func TestRecordLatency(t *testing.T) {
	db, h := setupTestDB(t)
	ctx := context.Background()

	samples := []struct {
		op      string
		latency time.Duration
	}{
		{"add_feedback", 45 * time.Microsecond},
		{"add_feedback", 55 * time.Microsecond},
		{"add_feedback", 2 * time.Millisecond},
		{"store_document", 3 * time.Millisecond},
	}
	for _, s := range samples {
		if err := h.RecordLatency(ctx, s.op, s.latency); err != nil {
			t.Fatalf("Failed to record latency: %v", err)
		}
	}

	var count int
	if err := db.QueryRow(`SELECT SUM(count) FROM latency_histogram WHERE operation = 'add_feedback'`).Scan(&count); err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 samples for add_feedback, got %d", count)
	}

	var rows int
	db.QueryRow(`SELECT COUNT(*) FROM latency_histogram WHERE operation = 'add_feedback'`).Scan(&rows)
	if rows != 3 {
		t.Errorf("Expected 3 distinct buckets, got %d", rows)
	}
}

func TestObserveOp(t *testing.T) {
	db, h := setupTestDB(t)

	var r Recorder = h
	r.ObserveOp("get_loop", 20*time.Microsecond, nil)
	r.ObserveOp("get_loop", 20*time.Microsecond, errors.New("boom"))

	var count int
	db.QueryRow(`SELECT SUM(count) FROM latency_histogram WHERE operation = 'get_loop'`).Scan(&count)
	if count != 2 {
		t.Errorf("Expected 2 samples, got %d", count)
	}
}

func TestObserveOpLogsWriteFailure(t *testing.T) {
	db, _ := setupTestDB(t)
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := NewHistogram(db, WithLogger(logger))

	if _, err := db.Exec(`DROP TABLE latency_histogram`); err != nil {
		t.Fatalf("Failed to drop table: %v", err)
	}
	h.ObserveOp("get_loop", time.Millisecond, nil)

	out := logs.String()
	if !strings.Contains(out, "latency write failed") || !strings.Contains(out, "op=get_loop") {
		t.Errorf("Expected write failure to be logged, got %q", out)
	}
}

func TestCalculatePercentiles(t *testing.T) {
	db, h := setupTestDB(t)
	ts := h.window()

	// 100 samples in total
	insert(t, db, "test_op", 50, 5, ts)
	insert(t, db, "test_op", 100, 10, ts)
	insert(t, db, "test_op", 500, 30, ts)
	insert(t, db, "test_op", 1000, 45, ts)
	insert(t, db, "test_op", 5000, 10, ts)

	p, err := h.CalculatePercentiles(context.Background(), "test_op", 60)
	if err != nil {
		t.Fatalf("Failed to calculate percentiles: %v", err)
	}

	if p.Count != 100 {
		t.Errorf("Expected count=100, got %d", p.Count)
	}
	// 50th sample falls in the 500-1000 bucket
	if p.P50 < 500 || p.P50 > 1000 {
		t.Errorf("P50 out of expected range: %f", p.P50)
	}
	// 95th sample falls in the 1000-5000 bucket
	if p.P95 < 1000 || p.P95 > 5000 {
		t.Errorf("P95 out of expected range: %f", p.P95)
	}

	if _, err := h.CalculatePercentiles(context.Background(), "missing", 60); err == nil {
		t.Error("Expected error for operation without data")
	}
}

func TestDistribution(t *testing.T) {
	db, h := setupTestDB(t)
	ts := h.window()

	insert(t, db, "test_op", 50, 20, ts)
	insert(t, db, "test_op", 100, 30, ts)
	insert(t, db, "test_op", 500, 50, ts)

	dist, err := h.Distribution(context.Background(), "test_op", 60)
	if err != nil {
		t.Fatalf("Failed to get distribution: %v", err)
	}
	if len(dist) != 3 {
		t.Fatalf("Expected 3 buckets, got %d", len(dist))
	}
	if dist[0].Percentage != 20.0 {
		t.Errorf("Expected 20%% for first bucket, got %f", dist[0].Percentage)
	}
	if dist[2].Cumulative != 100.0 {
		t.Errorf("Expected 100%% cumulative for last bucket, got %f", dist[2].Cumulative)
	}
}

func TestOperationsAndAllPercentiles(t *testing.T) {
	db, h := setupTestDB(t)
	ts := h.window()

	insert(t, db, "get_loop", 50, 100, ts)
	insert(t, db, "add_feedback", 50, 50, ts)
	insert(t, db, "store_document", 50, 200, ts)

	ops, err := h.Operations(context.Background(), 60)
	if err != nil {
		t.Fatalf("Failed to list operations: %v", err)
	}
	want := []string{"store_document", "get_loop", "add_feedback"}
	if len(ops) != len(want) {
		t.Fatalf("Expected %v, got %v", want, ops)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("ops[%d] = %s, expected %s", i, ops[i], want[i])
		}
	}

	all, err := h.AllPercentiles(context.Background(), 60)
	if err != nil {
		t.Fatalf("Failed to get all percentiles: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 operations, got %d", len(all))
	}
}

func TestCleanupOldData(t *testing.T) {
	db, h := setupTestDB(t)
	now := time.Now()

	insert(t, db, "old_op", 50, 10, now.Add(-8*24*time.Hour).Unix())
	insert(t, db, "recent_op", 50, 10, now.Add(-24*time.Hour).Unix())

	deleted, err := h.CleanupOldData(context.Background(), 7*24*time.Hour)
	if err != nil {
		t.Fatalf("Failed to cleanup: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 row deleted, got %d", deleted)
	}

	var count int
	db.QueryRow(`SELECT COUNT(*) FROM latency_histogram WHERE operation = 'recent_op'`).Scan(&count)
	if count != 1 {
		t.Error("Recent data was deleted")
	}
}

func TestPrometheusRecorder(t *testing.T) {
	before := testutil.ToFloat64(loopDecisions.WithLabelValues("spec", "COMPLETE"))
	opsBefore := testutil.ToFloat64(storeOps.WithLabelValues("add_feedback", "error"))

	r := Multi(Prometheus{}, nil, Nop{})
	r.ObserveDecision("spec", "COMPLETE", 90)
	r.ObserveOp("add_feedback", time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(loopDecisions.WithLabelValues("spec", "COMPLETE")); got != before+1 {
		t.Errorf("Expected decision counter %v, got %v", before+1, got)
	}
	if got := testutil.ToFloat64(storeOps.WithLabelValues("add_feedback", "error")); got != opsBefore+1 {
		t.Errorf("Expected op counter %v, got %v", opsBefore+1, got)
	}
}
