package dao

import (
	"context"
	"sfidfw/fw/common/logx"
	"sfidfw/fw/common/ttime"
	"sfidfw/fw/core/firewall"
	"sfidfw/fw/model"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

var daoEventLog = logx.New(logx.WithPrefix("dao.event_log_aggregator"))

const eventCols = "time,direction,protocol,port,source,destination,action,rule_id,reason"

// EventLogAggregator 评估事件批量写入按天分表；实现 firewall.Recorder
type EventLogAggregator struct {
	db         *gorm.DB
	driver     string
	flushEvery time.Duration
	maxBatch   int

	inCh   chan eventItem
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	ensuredDays sync.Map // map[string]struct{}
	sf          singleflight.Group
	ensure      func(day string) error
}

type eventItem struct {
	day string
	ev  model.FirewallEvent
}

func NewEventLogAggregator(db *gorm.DB, driver string, ensureTable func(day string) error, flushEvery time.Duration, maxBatch int) *EventLogAggregator {
	if flushEvery <= 0 {
		flushEvery = 700 * time.Millisecond
	}
	if maxBatch <= 0 {
		maxBatch = 500
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &EventLogAggregator{
		db:         db,
		driver:     strings.ToLower(driver),
		ensure:     ensureTable,
		flushEvery: flushEvery,
		maxBatch:   maxBatch,
		inCh:       make(chan eventItem, maxBatch),
		ctx:        ctx,
		cancel:     cancel,
	}
	daoEventLog.Infof("init flushEvery=%v maxBatch=%d driver=%s", a.flushEvery, a.maxBatch, a.driver)
	return a
}

func (a *EventLogAggregator) Start() {
	a.wg.Add(1)
	go a.worker()
}

func (a *EventLogAggregator) Shutdown() {
	a.cancel()
	a.wg.Wait()
	daoEventLog.Infof("shutdown done")
}

func EventFromLog(e firewall.LogEntry) model.FirewallEvent {
	return model.FirewallEvent{
		Time:        e.Timestamp.UnixMilli(),
		Direction:   string(e.Packet.Direction),
		Protocol:    string(e.Packet.Protocol),
		Port:        e.Packet.Port,
		Source:      e.Packet.Source,
		Destination: e.Packet.Destination,
		Action:      string(e.Action),
		RuleId:      e.RuleID,
		Reason:      e.Reason,
	}
}

// Record 按到达顺序入队；已关停时丢弃
func (a *EventLogAggregator) Record(e firewall.LogEntry) {
	day := ttime.Day(e.Timestamp)
	if err := a.ensureOnce(day); err != nil {
		daoEventLog.Debugf("ensure pre-add failed day=%s err=%v (will retry in flush)", day, err)
	}
	select {
	case <-a.ctx.Done():
	case a.inCh <- eventItem{day: day, ev: EventFromLog(e)}:
	}
}

func (a *EventLogAggregator) worker() {
	defer a.wg.Done()
	ticker := time.NewTicker(a.flushEvery)
	defer ticker.Stop()

	buf := make([]eventItem, 0, a.maxBatch)
	for {
		select {
		case <-a.ctx.Done():
		drain:
			for {
				select {
				case it := <-a.inCh:
					buf = append(buf, it)
				default:
					break drain
				}
			}
			if buf = a.flush(buf); len(buf) > 0 {
				daoEventLog.Errorf("drop %d pending event(s) on shutdown", len(buf))
			}
			return
		case it := <-a.inCh:
			if buf = append(buf, it); len(buf) >= a.maxBatch {
				buf = a.flush(buf)
			}
		case <-ticker.C:
			buf = a.flush(buf)
		}
	}
}

// flush 按天分组写入，返回写失败（需下一轮重试）的条目，保持原顺序
func (a *EventLogAggregator) flush(buf []eventItem) []eventItem {
	if len(buf) == 0 {
		return buf
	}
	byDay := make(map[string][]model.FirewallEvent, 2)
	var order []string
	for _, it := range buf {
		if _, ok := byDay[it.day]; !ok {
			order = append(order, it.day)
		}
		byDay[it.day] = append(byDay[it.day], it.ev)
	}

	var next []eventItem
	for _, day := range order {
		evs := byDay[day]
		err := a.ensureOnce(day)
		if err == nil {
			err = a.batchInsert(day, evs)
		}
		if err != nil {
			daoEventLog.Warnf("flush day=%s count=%d failed, retry next tick: %v", day, len(evs), err)
			for _, ev := range evs {
				next = append(next, eventItem{day: day, ev: ev})
			}
			continue
		}
		daoEventLog.Debugf("batch inserted day=%s count=%d", day, len(evs))
	}
	if next == nil {
		return buf[:0]
	}
	return next
}

func (a *EventLogAggregator) ensureOnce(day string) error {
	if _, ok := a.ensuredDays.Load(day); ok {
		return nil
	}
	_, err, _ := a.sf.Do(day, func() (any, error) {
		if _, ok := a.ensuredDays.Load(day); ok {
			return nil, nil
		}
		if err := a.ensure(day); err != nil {
			return nil, err
		}
		a.ensuredDays.Store(day, struct{}{})
		return nil, nil
	})
	return err
}

func (a *EventLogAggregator) batchInsert(day string, evs []model.FirewallEvent) error {
	tbl := model.EventTable(day)
	if a.driver == "mysql" {
		tbl = "`" + tbl + "`"
	}
	var sb strings.Builder
	sb.WriteString("INSERT INTO " + tbl + " (" + eventCols + ") VALUES ")
	args := make([]any, 0, len(evs)*9)
	for i, e := range evs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("(?,?,?,?,?,?,?,?,?)")
		args = append(args, e.Time, e.Direction, e.Protocol, e.Port, e.Source, e.Destination, e.Action, e.RuleId, e.Reason)
	}
	return a.db.Exec(sb.String(), args...).Error
}
