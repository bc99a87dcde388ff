package firewall

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/goccy/go-json"
)

func TestEngine_LoadWritesDefaults(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(t, store)

	if n := len(e.AllRules()); n != 3 {
		t.Fatalf("expected 3 default rules, got %d", n)
	}
	if n := len(e.Profiles()); n != 3 {
		t.Errorf("expected 3 default profiles, got %d", n)
	}
	if cur := e.CurrentProfile(); cur != DefaultProfileName {
		t.Errorf("expected current profile %q, got %q", DefaultProfileName, cur)
	}
	for _, key := range []string{KeyRules, KeyProfiles} {
		if _, ok, _ := store.Load(context.Background(), key); !ok {
			t.Errorf("expected defaults written back under %s", key)
		}
	}
}

func TestEngine_ReloadKeepsState(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	e := newTestEngine(t, store)
	r, err := e.AddRule(ctx, RuleInput{Name: ptr("Block telnet"), Port: ptr("23")})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	e.Evaluate(ctx, inbound(ProtocolTCP, 23, "8.8.8.8", "10.0.0.2"))

	e2 := newTestEngine(t, store)
	if _, err := e2.RuleByID(r.ID); err != nil {
		t.Errorf("expected rule %d after reload, got %v", r.ID, err)
	}
	if n := len(e2.Logs(0)); n != 1 {
		t.Errorf("expected 1 restored log entry, got %d", n)
	}
	r2, err := e2.AddRule(ctx, RuleInput{Name: ptr("Block ftp"), Port: ptr("21")})
	if err != nil {
		t.Fatalf("add after reload: %v", err)
	}
	if r2.ID <= r.ID {
		t.Errorf("expected new id above %d, got %d", r.ID, r2.ID)
	}
}

func TestEngine_DefaultScenario(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newFakeStore())

	cases := []struct {
		name   string
		p      Packet
		action Action
		ruleID int64
		reason string
	}{
		{"ssh", inbound(ProtocolTCP, 22, "203.0.113.5", "192.168.1.10"), ActionBlock, 1, ReasonRule},
		{"https", inbound(ProtocolTCP, 443, "203.0.113.5", "192.168.1.10"), ActionAllow, 2, ReasonRule},
		{"unmatched", inbound(ProtocolTCP, 8080, "203.0.113.5", "192.168.1.10"), ActionBlock, 0, ReasonDefault},
		{"malicious beats http", inbound(ProtocolTCP, 80, "192.0.2.1", "192.168.1.10"), ActionBlock, 3, ReasonRule},
		{"http to public", inbound(ProtocolTCP, 80, "8.8.8.8", "1.1.1.1"), ActionBlock, 0, ReasonDefault},
	}
	for _, c := range cases {
		d := e.Evaluate(ctx, c.p)
		if d.Action != c.action || d.RuleID != c.ruleID || d.Reason != c.reason {
			t.Errorf("%s: expected %s/%d/%s, got %s/%d/%s", c.name, c.action, c.ruleID, c.reason, d.Action, d.RuleID, d.Reason)
		}
	}

	s := e.Statistics()
	if s.Total != 5 || s.Blocked != 4 || s.Allowed != 1 {
		t.Errorf("expected 5 total / 4 blocked / 1 allowed, got %+v", s)
	}
	if s.BlockRate != 80 {
		t.Errorf("expected block rate 80, got %v", s.BlockRate)
	}
}

func TestEngine_Deterministic(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newFakeStore())
	p := inbound(ProtocolTCP, 443, "8.8.8.8", "10.0.0.1")
	first := e.Evaluate(ctx, p)
	for i := 0; i < 10; i++ {
		if d := e.Evaluate(ctx, p); d != first {
			t.Fatalf("expected %+v every time, got %+v", first, d)
		}
	}
}

func TestEngine_FirstMatchWins(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newFakeStore())
	allow, err := e.AddRule(ctx, RuleInput{
		Name: ptr("Allow admin ssh"), Action: ptr(ActionAllow), Protocol: ptr(ProtocolTCP),
		Port: ptr("22"), Source: ptr("8.8.8.8"), Priority: ptr(0),
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := e.AddRule(ctx, RuleInput{
		Name: ptr("Block admin ssh"), Action: ptr(ActionBlock), Protocol: ptr(ProtocolTCP),
		Port: ptr("22"), Source: ptr("8.8.8.8"), Priority: ptr(0),
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	d := e.Evaluate(ctx, inbound(ProtocolTCP, 22, "8.8.8.8", "10.0.0.1"))
	if d.Action != ActionAllow || d.RuleID != allow.ID {
		t.Errorf("expected earlier equal-priority rule %d to win, got %+v", allow.ID, d)
	}
	d = e.Evaluate(ctx, inbound(ProtocolTCP, 22, "8.8.4.4", "10.0.0.1"))
	if d.RuleID != 1 {
		t.Errorf("expected default ssh rule for other sources, got %+v", d)
	}
}

func TestEngine_DisabledRuleSkipped(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newFakeStore())
	if _, err := e.ToggleRule(ctx, 1, false); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	d := e.Evaluate(ctx, inbound(ProtocolTCP, 22, "8.8.8.8", "10.0.0.1"))
	if d.Action != ActionBlock || d.Reason != ReasonDefault {
		t.Errorf("expected default block once rule 1 is disabled, got %+v", d)
	}
}

func TestEngine_DisabledFirewallAllows(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{}
	e := newTestEngine(t, newFakeStore(), WithNotifier(n))
	e.SetEnabled(false)
	if got := n.last(); got.sev != SeverityWarning {
		t.Errorf("expected warning notification, got %+v", got)
	}

	for _, p := range []Packet{
		inbound(ProtocolTCP, 22, "203.0.113.5", "192.168.1.10"),
		inbound(ProtocolUDP, 9999, "192.0.2.1", "1.1.1.1"),
	} {
		d := e.Evaluate(ctx, p)
		if d.Action != ActionAllow || d.Reason != ReasonDisabled || d.RuleID != 0 {
			t.Errorf("expected allow/firewall_disabled, got %+v", d)
		}
	}
	if s := e.Statistics(); s.Allowed != 2 || s.Total != 2 {
		t.Errorf("expected disabled evaluations to be counted, got %+v", s)
	}
	if info := e.Info(); info.Enabled {
		t.Errorf("expected info to report disabled")
	}
}

func TestEngine_StatisticsInvariant(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newFakeStore())
	for port := 1; port <= 200; port++ {
		e.Evaluate(ctx, inbound(ProtocolTCP, port, "8.8.8.8", "10.0.0.1"))
	}
	s := e.Statistics()
	if s.Blocked+s.Allowed != s.Total || s.Total != 200 {
		t.Errorf("expected blocked+allowed == total == 200, got %+v", s)
	}
	e.ResetStatistics()
	if s := e.Statistics(); s.Total != 0 {
		t.Errorf("expected reset counters, got %+v", s)
	}
	if n := len(e.Logs(1000)); n != 200 {
		t.Errorf("expected reset to keep logs, got %d", n)
	}
}

func TestEngine_LogBound(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.discard[KeyLogs] = true
	e := newTestEngine(t, store)

	for i := 0; i < DefaultLogCapacity+5; i++ {
		e.Evaluate(ctx, inbound(ProtocolTCP, i, "8.8.8.8", "10.0.0.1"))
	}
	all := e.Logs(5000)
	if len(all) != DefaultLogCapacity {
		t.Fatalf("expected %d entries, got %d", DefaultLogCapacity, len(all))
	}
	if all[0].Packet.Port != DefaultLogCapacity+4 {
		t.Errorf("expected newest first, got port %d", all[0].Packet.Port)
	}
	if all[len(all)-1].Packet.Port != 5 {
		t.Errorf("expected oldest kept port 5, got %d", all[len(all)-1].Packet.Port)
	}
	if n := len(e.Logs(0)); n != DefaultLogLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLogLimit, n)
	}
	if s := e.Statistics(); s.Total != DefaultLogCapacity+5 {
		t.Errorf("expected counters beyond the log bound, got %+v", s)
	}
}

func TestEngine_LogEntryContent(t *testing.T) {
	ctx := context.Background()
	rec := &recordingRecorder{}
	e := newTestEngine(t, newFakeStore(), WithRecorder(rec))
	p := inbound(ProtocolTCP, 22, "8.8.8.8", "10.0.0.1")
	e.Evaluate(ctx, p)

	logs := e.Logs(1)
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}
	got := logs[0]
	if got.Packet != p || got.Action != ActionBlock || got.RuleID != 1 || !got.Timestamp.Equal(testNow) {
		t.Errorf("unexpected log entry %+v", got)
	}
	if len(rec.entries) != 1 || rec.entries[0].RuleID != 1 {
		t.Errorf("expected recorder to receive the entry, got %+v", rec.entries)
	}
}

func TestEngine_LogSaveFailureIgnored(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	e := newTestEngine(t, store)
	store.setFail(KeyLogs, true)

	d := e.Evaluate(ctx, inbound(ProtocolTCP, 443, "8.8.8.8", "10.0.0.1"))
	if d.Action != ActionAllow {
		t.Errorf("expected evaluation unaffected by log save failure, got %+v", d)
	}
	var pe *PersistError
	if err := e.ClearLogs(ctx); !errors.As(err, &pe) || pe.Key != KeyLogs {
		t.Errorf("expected PersistError for %s, got %v", KeyLogs, err)
	}
	store.setFail(KeyLogs, false)
	if err := e.ClearLogs(ctx); err != nil {
		t.Errorf("expected clear to succeed, got %v", err)
	}
	if n := len(e.Logs(0)); n != 0 {
		t.Errorf("expected no logs after clear, got %d", n)
	}
}

func TestEngine_Info(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, newFakeStore())
	if _, err := e.ToggleRule(ctx, 2, false); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	info := e.Info()
	if !info.Enabled || info.TotalRules != 3 || info.ActiveRules != 2 || info.CurrentProfile != DefaultProfileName {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestEngine_ConcurrentEvaluateStoresLatestLogs(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	e := newTestEngine(t, store)

	const workers, perWorker = 8, 40
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				e.Evaluate(ctx, inbound(ProtocolTCP, w*1000+i, "8.8.8.8", "10.0.0.1"))
			}
		}(w)
	}
	wg.Wait()

	raw, ok, err := store.Load(ctx, KeyLogs)
	if err != nil || !ok {
		t.Fatalf("expected stored logs, got ok=%v err=%v", ok, err)
	}
	var stored []LogEntry
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("decode stored logs: %v", err)
	}
	if len(stored) != workers*perWorker {
		t.Fatalf("expected %d stored entries, got %d", workers*perWorker, len(stored))
	}
	newest := e.Logs(1)[0]
	if stored[0].Packet != newest.Packet {
		t.Errorf("expected stored newest %+v, got %+v", newest.Packet, stored[0].Packet)
	}
}
