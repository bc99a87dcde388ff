package firewall

import (
	"context"
	"fmt"
	"sfidfw/fw/common/logx"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

type Config struct {
	Enabled     bool
	LogCapacity int
	Malicious   []string // 为空则使用 DefaultMalicious
}

type Option func(*Engine)

func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

func WithRecorder(r Recorder) Option { return func(e *Engine) { e.recorder = r } }

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine 规则引擎：有序规则集 + 配置档 + 有界日志 + 统计
type Engine struct {
	mu       sync.RWMutex
	enabled  bool
	rules    []Rule // 插入顺序
	ordered  []Rule // 按 priority 稳定排序后的快照，变更时重建
	profiles []Profile
	current  string

	matcher addressMatcher
	book    *logbook
	saveMu  sync.Mutex // 快照与写入同序，避免旧快照覆盖新快照
	ids     *idGen

	store    Store
	notifier Notifier
	recorder Recorder
	now      func() time.Time
	log      *logx.Logger
}

func New(store Store, cfg Config, opts ...Option) *Engine {
	if store == nil {
		store = NewMemoryStore()
	}
	mal := cfg.Malicious
	if len(mal) == 0 {
		mal = DefaultMalicious
	}
	e := &Engine{
		enabled:  cfg.Enabled,
		current:  DefaultProfileName,
		matcher:  newAddressMatcher(mal),
		book:     newLogbook(cfg.LogCapacity),
		store:    store,
		notifier: nopNotifier{},
		now:      time.Now,
		log:      logx.New(logx.WithPrefix("firewall")),
	}
	for _, o := range opts {
		o(e)
	}
	e.ids = newIDGen(e.now)
	return e
}

/******** 载入 ********/

// Load 从 Store 载入规则、配置档、日志；缺失时使用内置默认并回写
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rules, err := loadOrDefault(ctx, e.store, KeyRules, func() []Rule { return defaultRules(e.now()) })
	if err != nil {
		return err
	}
	profiles, err := loadOrDefault(ctx, e.store, KeyProfiles, defaultProfiles)
	if err != nil {
		return err
	}
	e.rules = rules
	e.profiles = profiles
	for _, p := range profiles {
		if p.IsDefault {
			e.current = p.Name
			break
		}
	}
	for _, r := range rules {
		e.ids.seed(r.ID)
	}
	e.reindexLocked()

	if b, ok, err := e.store.Load(ctx, KeyLogs); err != nil {
		e.log.Warnf("load logs failed, starting empty: %v", err)
	} else if ok {
		var entries []LogEntry
		if err := json.Unmarshal(b, &entries); err != nil {
			e.log.Warnf("decode logs failed, starting empty: %v", err)
		} else {
			e.book.restore(entries)
		}
	}

	e.log.Infof("loaded rules=%d profiles=%d current=%s enabled=%v", len(e.rules), len(e.profiles), e.current, e.enabled)
	return nil
}

func loadOrDefault[T any](ctx context.Context, s Store, key string, def func() []T) ([]T, error) {
	b, ok, err := s.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	if ok {
		var out []T
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		return out, nil
	}
	out := def()
	b, err = json.Marshal(out)
	if err != nil {
		return nil, err
	}
	if err := s.Save(ctx, key, b); err != nil {
		return nil, fmt.Errorf("save default %s: %w", key, err)
	}
	return out, nil
}

/******** 评估 ********/

// Evaluate 首个命中的启用规则决定结果；无命中默认 block；防火墙关闭时一律 allow
func (e *Engine) Evaluate(ctx context.Context, p Packet) Decision {
	e.mu.RLock()
	dec := e.decideLocked(p)
	e.mu.RUnlock()

	entry := LogEntry{
		Timestamp: e.now(),
		Packet:    p,
		Action:    dec.Action,
		RuleID:    dec.RuleID,
		Reason:    dec.Reason,
	}
	e.book.append(entry)
	if e.recorder != nil {
		e.recorder.Record(entry)
	}
	e.log.Tracef("evaluate %s/%s %s:%d -> %s action=%s rule=%d reason=%s",
		p.Direction, p.Protocol, p.Source, p.Port, p.Destination, dec.Action, dec.RuleID, dec.Reason)

	if err := e.saveLogs(ctx); err != nil {
		e.log.Errorf("save logs: %v", err)
	}
	return dec
}

func (e *Engine) decideLocked(p Packet) Decision {
	if !e.enabled {
		return Decision{Action: ActionAllow, Reason: ReasonDisabled}
	}
	for i := range e.ordered {
		r := &e.ordered[i]
		if r.Enabled && e.matcher.matches(r, p) {
			return Decision{Action: r.Action, RuleID: r.ID, Reason: ReasonRule}
		}
	}
	return Decision{Action: ActionBlock, Reason: ReasonDefault}
}

func (e *Engine) reindexLocked() {
	ordered := make([]Rule, len(e.rules))
	copy(ordered, e.rules)
	sortByPriority(ordered)
	e.ordered = ordered
}

/******** 开关 / 概览 ********/

func (e *Engine) SetEnabled(enabled bool) {
	e.mu.Lock()
	e.enabled = enabled
	e.mu.Unlock()
	if enabled {
		e.notifier.Notify("Firewall enabled", SeveritySuccess)
	} else {
		e.notifier.Notify("Firewall disabled", SeverityWarning)
	}
	e.log.Infof("firewall enabled=%v", enabled)
}

func (e *Engine) Enabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.enabled
}

func (e *Engine) Info() Info {
	e.mu.RLock()
	info := Info{
		Enabled:        e.enabled,
		CurrentProfile: e.current,
		TotalRules:     len(e.rules),
	}
	for _, r := range e.rules {
		if r.Enabled {
			info.ActiveRules++
		}
	}
	e.mu.RUnlock()
	info.Statistics = e.book.statistics()
	return info
}

/******** 日志 / 统计 ********/

// Logs 最新在前；limit<=0 使用默认 50
func (e *Engine) Logs(limit int) []LogEntry {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	return e.book.recent(limit)
}

func (e *Engine) ClearLogs(ctx context.Context) error {
	e.book.clear()
	if err := e.saveLogs(ctx); err != nil {
		e.notifier.Notify("Failed to save logs: "+err.Error(), SeverityError)
		return err
	}
	e.notifier.Notify("Logs cleared", SeveritySuccess)
	return nil
}

func (e *Engine) Statistics() Statistics { return e.book.statistics() }

func (e *Engine) ResetStatistics() {
	e.book.resetStatistics()
	e.notifier.Notify("Statistics reset", SeverityInfo)
}

func (e *Engine) saveLogs(ctx context.Context) error {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()
	b, err := json.Marshal(e.book.recent(0))
	if err != nil {
		return err
	}
	if err := e.store.Save(ctx, KeyLogs, b); err != nil {
		return &PersistError{Key: KeyLogs, Err: err}
	}
	return nil
}

/******** 持久化（失败回滚） ********/

func (e *Engine) commitRulesLocked(ctx context.Context, prev []Rule) error {
	b, err := json.Marshal(e.rules)
	if err == nil {
		err = e.store.Save(ctx, KeyRules, b)
	}
	if err != nil {
		e.rules = prev
		e.reindexLocked()
		e.log.Errorf("save rules failed, rolled back: %v", err)
		return &PersistError{Key: KeyRules, Err: err}
	}
	e.reindexLocked()
	return nil
}

func (e *Engine) commitProfilesLocked(ctx context.Context, prev []Profile) error {
	b, err := json.Marshal(e.profiles)
	if err == nil {
		err = e.store.Save(ctx, KeyProfiles, b)
	}
	if err != nil {
		e.profiles = prev
		e.log.Errorf("save profiles failed, rolled back: %v", err)
		return &PersistError{Key: KeyProfiles, Err: err}
	}
	return nil
}

func (e *Engine) failed(err error) error {
	e.notifier.Notify(err.Error(), SeverityError)
	return err
}
