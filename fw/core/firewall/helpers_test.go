package firewall

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var testNow = time.Date(2025, 9, 6, 10, 0, 0, 0, time.UTC)

type fakeStore struct {
	*MemoryStore
	mu      sync.Mutex
	fail    map[string]bool
	discard map[string]bool
	saves   map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		MemoryStore: NewMemoryStore(),
		fail:        map[string]bool{},
		discard:     map[string]bool{},
		saves:       map[string]int{},
	}
}

var errDiskFull = errors.New("disk full")

func (s *fakeStore) Save(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	fail, discard := s.fail[key], s.discard[key]
	s.saves[key]++
	s.mu.Unlock()
	if fail {
		return errDiskFull
	}
	if discard {
		return nil
	}
	return s.MemoryStore.Save(ctx, key, data)
}

func (s *fakeStore) setFail(key string, v bool) {
	s.mu.Lock()
	s.fail[key] = v
	s.mu.Unlock()
}

type notice struct {
	msg string
	sev Severity
}

type recordingNotifier struct {
	mu   sync.Mutex
	list []notice
}

func (n *recordingNotifier) Notify(msg string, sev Severity) {
	n.mu.Lock()
	n.list = append(n.list, notice{msg, sev})
	n.mu.Unlock()
}

func (n *recordingNotifier) last() notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.list) == 0 {
		return notice{}
	}
	return n.list[len(n.list)-1]
}

type recordingRecorder struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (r *recordingRecorder) Record(e LogEntry) {
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
}

func newTestEngine(t *testing.T, store Store, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	e := New(store, Config{Enabled: true}, opts...)
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return e
}

func ptr[T any](v T) *T { return &v }

func inbound(proto Protocol, port int, src, dst string) Packet {
	return Packet{Direction: DirectionInbound, Protocol: proto, Port: port, Source: src, Destination: dst}
}
