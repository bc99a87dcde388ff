package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sfidfw/fw/core/firewall"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

type fakeSource struct{}

func (fakeSource) Info() firewall.Info {
	return firewall.Info{
		Enabled: true, CurrentProfile: "strict", TotalRules: 5, ActiveRules: 3,
		Statistics: firewall.Statistics{Blocked: 3, Allowed: 1, Total: 4, BlockRate: 75},
	}
}

type fakeWriter struct {
	mu      sync.Mutex
	points  []*write.Point
	flushed int
	errs    chan error
}

func (w *fakeWriter) WritePoint(p *write.Point) {
	w.mu.Lock()
	w.points = append(w.points, p)
	w.mu.Unlock()
}

func (w *fakeWriter) Flush() {
	w.mu.Lock()
	w.flushed++
	w.mu.Unlock()
}

func (w *fakeWriter) Errors() <-chan error { return w.errs }

func (w *fakeWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.points)
}

func TestExporter_Point(t *testing.T) {
	e := NewExporter(fakeSource{}, &fakeWriter{}, 0)
	now := time.Date(2025, 9, 6, 10, 0, 0, 0, time.UTC)
	p := e.Point(now)
	if p.Name() != Measurement || !p.Time().Equal(now) {
		t.Errorf("unexpected point %s at %v", p.Name(), p.Time())
	}
	tags := map[string]string{}
	for _, tg := range p.TagList() {
		tags[tg.Key] = tg.Value
	}
	if tags["profile"] != "strict" {
		t.Errorf("expected profile tag, got %v", tags)
	}
	fields := map[string]any{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	if fields["blocked"] != int64(3) || fields["block_rate"] != 75.0 || fields["active_rules"] != int64(3) {
		t.Errorf("unexpected fields %v", fields)
	}
}

func TestExporter_RunFlushesOnCancel(t *testing.T) {
	w := &fakeWriter{errs: make(chan error, 1)}
	e := NewExporter(fakeSource{}, w, 5*time.Millisecond)
	closed := false
	e.close = func() { closed = true }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	w.errs <- errors.New("bucket not found")

	deadline := time.Now().Add(2 * time.Second)
	for w.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if w.count() < 2 || w.flushed != 1 || !closed {
		t.Errorf("expected points, one flush and close; got points=%d flushed=%d closed=%v", w.count(), w.flushed, closed)
	}
}
