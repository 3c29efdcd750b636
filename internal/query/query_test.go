package query

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carverauto/fleetwatch/pkg/logger"
)

var (
	errFakeRowScanMismatch    = errors.New("fake row scan mismatch")
	errFakeRowUnsupportedDest = errors.New("unsupported destination type")
	errFakeDBQueueEmpty       = errors.New("fake db result queue empty")
)

type fakeRow struct {
	values []interface{}
}

func (r *fakeRow) Scan(dest ...interface{}) error {
	if len(dest) != len(r.values) {
		return fmt.Errorf("%w: dest=%d values=%d", errFakeRowScanMismatch, len(dest), len(r.values))
	}

	for i, d := range dest {
		switch ptr := d.(type) {
		case *string:
			val, _ := r.values[i].(string)
			*ptr = val
		case *float64:
			val, _ := r.values[i].(float64)
			*ptr = val
		case *int:
			val, _ := r.values[i].(int)
			*ptr = val
		case *uint64:
			val, _ := r.values[i].(uint64)
			*ptr = val
		case *time.Time:
			val, _ := r.values[i].(time.Time)
			*ptr = val
		default:
			return fmt.Errorf("%w: %T", errFakeRowUnsupportedDest, d)
		}
	}

	return nil
}

// fakeRows satisfies pgx.Rows over an in-memory value grid, enough for
// the Engine's Next/Scan/Err/Close loop.
type fakeRows struct {
	rows [][]interface{}
	idx  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]interface{}, error)               { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}

	r.idx++

	return true
}

func (r *fakeRows) Scan(dest ...interface{}) error {
	row := fakeRow{values: r.rows[r.idx-1]}

	return row.Scan(dest...)
}

type queryCall struct {
	sql  string
	args []interface{}
}

// fakeDB satisfies DB, recording every statement and handing back queued
// results in order.
type fakeDB struct {
	calls     []queryCall
	rowsQueue []*fakeRows
	rowQueue  []*fakeRow
}

func (db *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	db.calls = append(db.calls, queryCall{sql: sql, args: args})

	if len(db.rowsQueue) == 0 {
		return nil, errFakeDBQueueEmpty
	}

	rows := db.rowsQueue[0]
	db.rowsQueue = db.rowsQueue[1:]

	return rows, nil
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.calls = append(db.calls, queryCall{sql: sql, args: args})

	if len(db.rowQueue) == 0 {
		return &fakeRow{}
	}

	row := db.rowQueue[0]
	db.rowQueue = db.rowQueue[1:]

	return row
}

func performanceValues(serverName string, ts time.Time, cpuPercent, score float64) []interface{} {
	return []interface{}{
		serverName, ts,
		cpuPercent, 0.0, 0.0, 0.0,
		0.0, 0.0, 0.0, 0.0,
		0.0, 0.0, 0.0, 0.0,
		0.0, 0.0, 0.0, 0.0,
		0.0, 0.0, 0.0, 0.0,
		0.0, 0.0, 0.0, 0.0,
		0.0, 0.0, score,
	}
}

func TestCoercePage(t *testing.T) {
	cases := []struct {
		page, pageSize         int
		wantPage, wantPageSize int
	}{
		{0, 0, 1, defaultPageSize},
		{-5, -5, 1, defaultPageSize},
		{3, 100, 3, 100},
		{1, 1, 1, 1},
	}

	for _, c := range cases {
		gotPage, gotPageSize := coercePage(c.page, c.pageSize)
		if gotPage != c.wantPage || gotPageSize != c.wantPageSize {
			t.Fatalf("coercePage(%d,%d) = (%d,%d), want (%d,%d)",
				c.page, c.pageSize, gotPage, gotPageSize, c.wantPage, c.wantPageSize)
		}
	}
}

func TestOffsetFor(t *testing.T) {
	if got := offsetFor(3, 100); got != 200 {
		t.Fatalf("offsetFor(3,100) = %d, want 200", got)
	}

	if got := offsetFor(1, 50); got != 0 {
		t.Fatalf("offsetFor(1,50) = %d, want 0", got)
	}
}

func TestScanPerformanceRow(t *testing.T) {
	now := time.Now().UTC()

	r, err := scanPerformanceRow(&fakeRow{values: performanceValues("host-a", now, 42.5, 88.0)})
	if err != nil {
		t.Fatalf("scanPerformanceRow() err = %v", err)
	}

	if r.ServerName != "host-a" || !r.Timestamp.Equal(now) {
		t.Fatalf("scanPerformanceRow() identity = %s/%v, want host-a/%v", r.ServerName, r.Timestamp, now)
	}

	if r.CPUPercent != 42.5 || r.Score != 88.0 {
		t.Fatalf("scanPerformanceRow() cpu/score = %v/%v, want 42.5/88.0", r.CPUPercent, r.Score)
	}
}

func TestScanPerformanceRowMismatch(t *testing.T) {
	if _, err := scanPerformanceRow(&fakeRow{values: []interface{}{"host-a"}}); err == nil {
		t.Fatalf("scanPerformanceRow() with a short row should fail")
	}
}

func TestScanTrendPoint(t *testing.T) {
	bucket := time.Now().UTC().Truncate(time.Minute)

	p, err := scanTrendPoint(&fakeRow{values: []interface{}{bucket, 55.0, 1.5, 70.0}})
	if err != nil {
		t.Fatalf("scanTrendPoint() err = %v", err)
	}

	if !p.Bucket.Equal(bucket) || p.CPUPercent != 55.0 || p.LoadAvg1 != 1.5 || p.Score != 70.0 {
		t.Fatalf("scanTrendPoint() = %+v, want bucket=%v cpu=55 load=1.5 score=70", p, bucket)
	}
}

func TestScanScoreRow(t *testing.T) {
	now := time.Now().UTC()

	r, err := scanScoreRow(&fakeRow{values: []interface{}{"host-b", now, 64.0}})
	if err != nil {
		t.Fatalf("scanScoreRow() err = %v", err)
	}

	if r.ServerName != "host-b" || r.Score != 64.0 {
		t.Fatalf("scanScoreRow() = %+v, want host-b/64", r)
	}
}

func TestScanAnomalySource(t *testing.T) {
	now := time.Now().UTC()

	src, err := scanAnomalySource(&fakeRow{values: []interface{}{"host-c", now, 96.0, 1.2, 50.0, 30.0}})
	if err != nil {
		t.Fatalf("scanAnomalySource() err = %v", err)
	}

	want := anomalySource{ServerName: "host-c", Timestamp: now, CPUPercent: 96.0, CPURate: 1.2, MemPercent: 50.0, DiskUtil: 30.0}
	if src != want {
		t.Fatalf("scanAnomalySource() = %+v, want %+v", src, want)
	}
}

func TestScanNetDetailRow(t *testing.T) {
	now := time.Now().UTC()
	values := []interface{}{
		"host-d", "eth0", now,
		100.0, 0.5, 200.0, 0.25,
		10.0, 0.0, 20.0, 0.0,
		uint64(3), 0.0, uint64(4), 0.0,
		uint64(5), 0.0, uint64(6), 0.0,
	}

	r, err := scanNetDetailRow(&fakeRow{values: values})
	if err != nil {
		t.Fatalf("scanNetDetailRow() err = %v", err)
	}

	if r.NetName != "eth0" || r.RcvRate != 100.0 || r.ErrIn != 3 || r.DropOut != 6 {
		t.Fatalf("scanNetDetailRow() = %+v, want eth0/100/3/6", r)
	}
}

func TestScanSoftIRQDetailRow(t *testing.T) {
	now := time.Now().UTC()
	values := []interface{}{
		"host-e", "cpu0", now,
		uint64(1), 0.0, uint64(2), 0.5, uint64(3), 0.0, uint64(4), 0.0,
		uint64(5), 0.0, uint64(6), 0.0, uint64(7), 0.0,
		uint64(8), 0.0, uint64(9), 0.0, uint64(10), 0.0,
	}

	r, err := scanSoftIRQDetailRow(&fakeRow{values: values})
	if err != nil {
		t.Fatalf("scanSoftIRQDetailRow() err = %v", err)
	}

	if r.CPUName != "cpu0" || r.Hi != 1 || r.TimerRate != 0.5 || r.RCU != 10 {
		t.Fatalf("scanSoftIRQDetailRow() = %+v, want cpu0/1/0.5/10", r)
	}
}

// TestQueryPerformancePagination feeds a page-3 request over a 250-row
// table through a stub DB: the page query must carry LIMIT 100 OFFSET 200
// and the result must pair the 50 scanned rows with total=250.
func TestQueryPerformancePagination(t *testing.T) {
	now := time.Now().UTC()

	pageRows := make([][]interface{}, 0, 50)
	for i := 0; i < 50; i++ {
		pageRows = append(pageRows, performanceValues("h", now.Add(-time.Duration(i)*time.Second), float64(i), 50.0))
	}

	db := &fakeDB{
		rowQueue:  []*fakeRow{{values: []interface{}{250}}},
		rowsQueue: []*fakeRows{{rows: pageRows}},
	}

	e := NewEngine(db, 60*time.Second, logger.NewTestLogger())

	rows, total, err := e.QueryPerformance(context.Background(), "h", now.Add(-time.Hour), now, 3, 100)
	if err != nil {
		t.Fatalf("QueryPerformance() err = %v", err)
	}

	if total != 250 || len(rows) != 50 {
		t.Fatalf("QueryPerformance() total=%d len=%d, want 250/50", total, len(rows))
	}

	if len(db.calls) != 2 {
		t.Fatalf("QueryPerformance() issued %d statements, want count + page", len(db.calls))
	}

	pageArgs := db.calls[1].args
	if len(pageArgs) != 5 {
		t.Fatalf("page query args = %v, want host, t0, t1, limit, offset", pageArgs)
	}

	if pageArgs[3] != 100 || pageArgs[4] != 200 {
		t.Fatalf("page query LIMIT/OFFSET = %v/%v, want 100/200", pageArgs[3], pageArgs[4])
	}
}

// TestQueryTrendBuckets drives a 10-minute window of 10-second samples
// bucketed at 60s through a stub DB: each fake bucket row carries the
// arithmetic mean of its six source samples, and the Engine must hand
// them back in ascending bucket order with the interval bound as $4.
func TestQueryTrendBuckets(t *testing.T) {
	t0 := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(10 * time.Minute)

	bucketRows := make([][]interface{}, 0, 10)

	for b := 0; b < 10; b++ {
		var sum float64
		for s := 0; s < 6; s++ {
			sum += float64(b*6 + s)
		}

		mean := sum / 6

		bucketRows = append(bucketRows, []interface{}{t0.Add(time.Duration(b) * time.Minute), mean, 1.0, 50.0})
	}

	db := &fakeDB{rowsQueue: []*fakeRows{{rows: bucketRows}}}
	e := NewEngine(db, 60*time.Second, logger.NewTestLogger())

	points, err := e.QueryTrend(context.Background(), "h", t0, t1, 60)
	if err != nil {
		t.Fatalf("QueryTrend() err = %v", err)
	}

	if len(points) != 10 {
		t.Fatalf("QueryTrend() returned %d buckets, want 10", len(points))
	}

	for b, p := range points {
		wantMean := float64(b*6) + 2.5 // mean of b*6 .. b*6+5
		if p.CPUPercent != wantMean {
			t.Fatalf("bucket %d CPUPercent = %v, want %v", b, p.CPUPercent, wantMean)
		}

		if wantBucket := t0.Add(time.Duration(b) * time.Minute); !p.Bucket.Equal(wantBucket) {
			t.Fatalf("bucket %d time = %v, want %v", b, p.Bucket, wantBucket)
		}
	}

	if len(db.calls) != 1 || len(db.calls[0].args) != 4 || db.calls[0].args[3] != 60 {
		t.Fatalf("trend query calls = %+v, want one statement with interval 60 as $4", db.calls)
	}
}

// TestQueryTrendInvalidRange covers the t0 > t1 precondition: empty
// result, no error, and no statement issued.
func TestQueryTrendInvalidRange(t *testing.T) {
	db := &fakeDB{}
	e := NewEngine(db, 60*time.Second, logger.NewTestLogger())

	now := time.Now()

	points, err := e.QueryTrend(context.Background(), "h", now, now.Add(-time.Hour), 60)
	if err != nil || points != nil {
		t.Fatalf("QueryTrend() with inverted range = (%v, %v), want (nil, nil)", points, err)
	}

	if len(db.calls) != 0 {
		t.Fatalf("QueryTrend() with inverted range issued %d statements, want 0", len(db.calls))
	}
}

// TestClassify covers the per-metric breach fan-out and the fixed
// severity boundaries: >95 utilization is CRITICAL, |rate| > 1.0 is
// CRITICAL, anything below is WARNING.
func TestClassify(t *testing.T) {
	now := time.Now()
	th := AnomalyThresholds{CPU: 80, Mem: 80, Disk: 80, ChangeRate: 1.0}

	cases := []struct {
		name         string
		src          anomalySource
		wantType     AnomalyType
		wantSeverity Severity
	}{
		{"cpu critical", anomalySource{CPUPercent: 96}, AnomalyCPUHigh, SeverityCritical},
		{"cpu warning", anomalySource{CPUPercent: 90}, AnomalyCPUHigh, SeverityWarning},
		{"mem boundary is warning", anomalySource{MemPercent: 95}, AnomalyMemHigh, SeverityWarning},
		{"mem critical", anomalySource{MemPercent: 95.1}, AnomalyMemHigh, SeverityCritical},
		{"disk critical", anomalySource{DiskUtil: 99}, AnomalyDiskHigh, SeverityCritical},
		{"rate spike critical", anomalySource{CPURate: 1.5}, AnomalyRateSpike, SeverityCritical},
		{"negative rate spike critical", anomalySource{CPURate: -1.5}, AnomalyRateSpike, SeverityCritical},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.src.ServerName = "h"
			tc.src.Timestamp = now

			got := classify(tc.src, th)
			if len(got) != 1 {
				t.Fatalf("classify() = %d records, want exactly 1", len(got))
			}

			if got[0].Type != tc.wantType || got[0].Severity != tc.wantSeverity {
				t.Fatalf("classify() = %s/%s, want %s/%s", got[0].Type, got[0].Severity, tc.wantType, tc.wantSeverity)
			}
		})
	}
}

func TestClassifyNoBreach(t *testing.T) {
	th := AnomalyThresholds{CPU: 80, Mem: 80, Disk: 80, ChangeRate: 1.0}

	if got := classify(anomalySource{CPUPercent: 50, MemPercent: 50, DiskUtil: 50, CPURate: 0.2}, th); len(got) != 0 {
		t.Fatalf("classify() below every threshold = %d records, want 0", len(got))
	}
}

func TestClassifyMultipleBreaches(t *testing.T) {
	th := AnomalyThresholds{CPU: 80, Mem: 80, Disk: 80, ChangeRate: 1.0}

	got := classify(anomalySource{CPUPercent: 96, MemPercent: 97, DiskUtil: 98, CPURate: 2.0}, th)
	if len(got) != 4 {
		t.Fatalf("classify() with every metric breached = %d records, want 4", len(got))
	}
}

func TestUtilSeverity(t *testing.T) {
	if utilSeverity(96) != SeverityCritical {
		t.Fatalf("utilSeverity(96) should be CRITICAL")
	}

	if utilSeverity(90) != SeverityWarning {
		t.Fatalf("utilSeverity(90) should be WARNING")
	}

	if utilSeverity(95) != SeverityWarning {
		t.Fatalf("utilSeverity(95) at the boundary should be WARNING (strictly greater-than 95 is CRITICAL)")
	}
}

func TestRateSeverity(t *testing.T) {
	if rateSeverity(1.5) != SeverityCritical {
		t.Fatalf("rateSeverity(1.5) should be CRITICAL")
	}

	if rateSeverity(-1.5) != SeverityCritical {
		t.Fatalf("rateSeverity(-1.5) should be CRITICAL")
	}

	if rateSeverity(0.5) != SeverityWarning {
		t.Fatalf("rateSeverity(0.5) should be WARNING")
	}
}

func TestSummarizeEmpty(t *testing.T) {
	stats := summarize(nil, time.Now(), 60*time.Second)
	if stats.Total != 0 {
		t.Fatalf("summarize(nil) Total = %d, want 0", stats.Total)
	}
}

// TestSummarize covers the ClusterStats aggregation used by
// QueryLatestScore: online/offline split, min/max/avg, best/worst server.
func TestSummarize(t *testing.T) {
	now := time.Now()

	scores := []ScoreRow{
		{ServerName: "fresh-high", Timestamp: now, Score: 90},
		{ServerName: "fresh-low", Timestamp: now, Score: 30},
		{ServerName: "stale", Timestamp: now.Add(-2 * time.Minute), Score: 50},
	}

	stats := summarize(scores, now, 60*time.Second)

	if stats.Total != 3 {
		t.Fatalf("Total = %d, want 3", stats.Total)
	}

	if stats.Online != 2 || stats.Offline != 1 {
		t.Fatalf("Online/Offline = %d/%d, want 2/1", stats.Online, stats.Offline)
	}

	if stats.BestServer != "fresh-high" || stats.MaxScore != 90 {
		t.Fatalf("best = %s/%v, want fresh-high/90", stats.BestServer, stats.MaxScore)
	}

	if stats.WorstServer != "fresh-low" || stats.MinScore != 30 {
		t.Fatalf("worst = %s/%v, want fresh-low/30", stats.WorstServer, stats.MinScore)
	}

	wantAvg := (90.0 + 30.0 + 50.0) / 3.0
	if stats.AvgScore != wantAvg {
		t.Fatalf("AvgScore = %v, want %v", stats.AvgScore, wantAvg)
	}
}
