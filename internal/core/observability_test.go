package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"placesdir/internal/infra/persistence/memory"
	"placesdir/pkg/domain"
)

type captureAuditRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
}

func (c *captureAuditRecorder) has(op string, status AuditStatus, predicate func(AuditEntry) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, entry := range c.entries {
		if entry.Operation == op && entry.Status == status {
			if predicate == nil || predicate(entry) {
				return true
			}
		}
	}
	return false
}

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, duration time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: duration})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type captureLogger struct {
	warnings []string
	errors   []string
}

func (l *captureLogger) Debug(string, ...any)       {}
func (l *captureLogger) Info(string, ...any)        {}
func (l *captureLogger) Warn(msg string, _ ...any)  { l.warnings = append(l.warnings, msg) }
func (l *captureLogger) Error(msg string, _ ...any) { l.errors = append(l.errors, msg) }

// steppingClock advances one second on every reading.
func steppingClock() ClockFunc {
	current := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func TestNoopDefaults(_ *testing.T) {
	logger := noopLogger{}
	logger.Debug("debug", "key", "value")
	logger.Info("info", "key", "value")
	logger.Warn("warn", "key", "value")
	logger.Error("error", "key", "value")
	noopMetrics{}.Observe(context.Background(), "op", true, time.Second)
	_, span := noopTracer{}.Start(context.Background(), "op")
	span.End(nil)
	noopAudit{}.Record(context.Background(), AuditEntry{})
}

func TestNilOptionsKeepDefaults(t *testing.T) {
	s := NewStore(memory.NewSlot(), nil, nil, WithLogger(nil), WithClock(nil), WithMetricsRecorder(nil), WithTracer(nil), WithAuditRecorder(nil))
	if _, ok := s.logger.(noopLogger); !ok {
		t.Fatalf("expected noop logger, got %T", s.logger)
	}
	if _, ok := s.clock.(systemClock); !ok {
		t.Fatalf("expected system clock, got %T", s.clock)
	}
	if _, ok := s.metrics.(noopMetrics); !ok {
		t.Fatalf("expected noop metrics, got %T", s.metrics)
	}
	if _, ok := s.tracer.(noopTracer); !ok {
		t.Fatalf("expected noop tracer, got %T", s.tracer)
	}
	if _, ok := s.audit.(noopAudit); !ok {
		t.Fatalf("expected noop audit, got %T", s.audit)
	}
}

func TestStoreObservability(t *testing.T) {
	ctx := context.Background()
	metrics := &captureMetricsRecorder{}
	audit := &captureAuditRecorder{}
	logger := &captureLogger{}
	var traceBuf bytes.Buffer
	tracer := NewJSONTracer(&traceBuf, steppingClock())
	store, slot, _ := newTestStore(t, ilSeed,
		WithMetricsRecorder(metrics),
		WithAuditRecorder(audit),
		WithLogger(logger),
		WithTracer(tracer),
		WithClock(steppingClock()),
	)
	if err := slot.Write(ctx, []byte("corrupt")); err != nil {
		t.Fatalf("prime slot: %v", err)
	}
	if _, err := store.LoadAll(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(logger.warnings) != 1 {
		t.Fatalf("expected corrupt slot warning, got %v", logger.warnings)
	}
	site, err := store.AddSite(ctx, "IL", domain.RawSite{})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := store.DeleteSite(ctx, "IL", 99); err == nil {
		t.Fatalf("expected delete error")
	}

	if !metrics.has(OpLoadAll, true) || !metrics.has(OpAddSite, true) || !metrics.has(OpDeleteSite, false) {
		t.Fatalf("missing metrics: %+v", metrics.calls)
	}
	for _, call := range metrics.calls {
		if call.duration != time.Second {
			t.Fatalf("expected one-second duration from stepping clock, got %v", call.duration)
		}
	}
	if !audit.has(OpAddSite, AuditStatusSuccess, func(e AuditEntry) bool { return e.Region == "IL" && e.Number == site.Number }) {
		t.Fatalf("missing add audit: %+v", audit.entries)
	}
	if !audit.has(OpDeleteSite, AuditStatusError, func(e AuditEntry) bool { return e.Number == 99 && e.Error != "" }) {
		t.Fatalf("missing delete audit: %+v", audit.entries)
	}
	if audit.has(OpLoadAll, AuditStatusSuccess, nil) {
		t.Fatalf("reads must not be audited")
	}
	if len(logger.errors) != 1 {
		t.Fatalf("expected one error log, got %v", logger.errors)
	}

	entries := tracer.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(entries))
	}
	if entries[2].Operation != OpDeleteSite || entries[2].Status != "error" || entries[2].DurationMS != 1000 {
		t.Fatalf("unexpected span %+v", entries[2])
	}
	lines := strings.Split(strings.TrimSpace(traceBuf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 trace lines, got %d", len(lines))
	}
	var first JSONTraceEntry
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil || first.Operation != OpLoadAll {
		t.Fatalf("bad trace line %q: %v", lines[0], err)
	}
}

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	if !strings.HasPrefix(rec.Name(), "placesdir_store_metrics_") {
		t.Fatalf("unexpected name %q", rec.Name())
	}
	ctx := context.Background()
	rec.Observe(ctx, OpAddSite, true, 1500*time.Microsecond)
	rec.Observe(ctx, OpAddSite, false, 500*time.Microsecond)
	rec.Observe(ctx, "", true, time.Second)
	snap := rec.Snapshot()
	got := snap[OpAddSite]
	if got.Success != 1 || got.Error != 1 || got.TotalMS != 2 {
		t.Fatalf("unexpected stats %+v", got)
	}
	if len(snap) != 1 {
		t.Fatalf("empty operation must be ignored: %+v", snap)
	}
	if v := expvar.Get(rec.Name()); v == nil || !strings.Contains(v.String(), `"success":1`) {
		t.Fatalf("expvar not published: %v", v)
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	ctx := context.Background()
	rec.Observe(ctx, OpRegions, true, 10*time.Millisecond)
	rec.Observe(ctx, OpRegions, true, 20*time.Millisecond)
	rec.Observe(ctx, OpImportJSON, false, time.Millisecond)

	if got := testutil.ToFloat64(rec.operations.WithLabelValues(OpRegions, "success")); got != 2 {
		t.Fatalf("expected 2 successful regions calls, got %v", got)
	}
	if got := testutil.ToFloat64(rec.operations.WithLabelValues(OpImportJSON, "error")); got != 1 {
		t.Fatalf("expected 1 failed import, got %v", got)
	}
	if n := testutil.CollectAndCount(rec.durations); n != 2 {
		t.Fatalf("expected 2 histogram series, got %d", n)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestMultiMetricsRecorder(t *testing.T) {
	a, b := &captureMetricsRecorder{}, &captureMetricsRecorder{}
	MultiMetricsRecorder{a, nil, b}.Observe(context.Background(), OpReset, false, 0)
	if !a.has(OpReset, false) || !b.has(OpReset, false) {
		t.Fatalf("fan-out failed")
	}
}

func TestJSONTracerWithoutWriter(t *testing.T) {
	tracer := NewJSONTracer(nil, nil)
	_, span := tracer.Start(context.Background(), OpReset)
	span.End(errors.New("boom"))
	entries := tracer.Entries()
	if len(entries) != 1 || entries[0].Error != "boom" || entries[0].Status != "error" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}
