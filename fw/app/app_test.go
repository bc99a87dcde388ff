package app

import (
	"context"
	"path/filepath"
	"sfidfw/fw/common/config"
	"sfidfw/fw/common/ttime"
	"sfidfw/fw/core/firewall"
	"sfidfw/fw/db/dao"
	"testing"
	"time"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	c := config.Default()
	c.DB.Master.DSN = "file:" + filepath.ToSlash(filepath.Join(dir, "master.db")) + "?_busy_timeout=5000"
	c.DB.Log.DSN = "file:" + filepath.ToSlash(filepath.Join(dir, "log.db")) + "?_busy_timeout=5000"
	c.Firewall.MockTraffic.Enable = false
	return c
}

func TestApp_PersistsAcrossRestart(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	a, err := NewWithConfig(cfg, "")
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if n := len(a.Engine.AllRules()); n != 3 {
		t.Errorf("expected 3 default rules, got %d", n)
	}
	name := "Block DNS"
	port := "53"
	if _, err := a.Engine.AddRule(ctx, firewall.RuleInput{Name: &name, Port: &port}); err != nil {
		t.Fatalf("add rule: %v", err)
	}
	a.Engine.Evaluate(ctx, firewall.Packet{
		Direction: firewall.DirectionInbound, Protocol: firewall.ProtocolTCP, Port: 22,
		Source: "8.8.8.8", Destination: "192.168.1.10",
	})
	if err := a.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := a.Stop(); err != nil {
		t.Errorf("expected second stop to be a no-op, got %v", err)
	}

	b, err := NewWithConfig(cfg, "")
	if err != nil {
		t.Fatalf("reopen app: %v", err)
	}
	defer b.Stop()
	if n := len(b.Engine.AllRules()); n != 4 {
		t.Errorf("expected 4 rules after restart, got %d", n)
	}
	if logs := b.Engine.Logs(0); len(logs) != 1 || logs[0].RuleID != 1 {
		t.Errorf("expected the persisted log entry, got %+v", logs)
	}

	qctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	list, total, err := dao.QueryEvents(qctx, b.LogDB.GormDataSource, ttime.Day(time.Now()), dao.EventFilter{}, 1, 20)
	if err != nil {
		t.Fatalf("query events: %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].Action != string(firewall.ActionBlock) {
		t.Errorf("expected one blocked event in history, got total=%d list=%+v", total, list)
	}
}

func TestApp_MemoryStoreWhenMasterDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.DB.Master.Enable = false
	cfg.DB.Log.Enable = false

	a, err := NewWithConfig(cfg, "")
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Stop()
	if a.MasterDB != nil || a.LogDB != nil || a.EventAggregator != nil {
		t.Errorf("expected no databases, got master=%v log=%v", a.MasterDB, a.LogDB)
	}
	if _, ok := a.Store.(*firewall.MemoryStore); !ok {
		t.Errorf("expected memory store, got %T", a.Store)
	}
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.DB.Log.Enable = false
	cfg.Firewall.MockTraffic.Enable = true
	cfg.Firewall.MockTraffic.IntervalSec = 1

	a, err := NewWithConfig(cfg, "")
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Stop()
	_ = a.Start()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Errorf("expected Run to return after cancel")
	}
}
