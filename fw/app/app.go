package app

import (
	"context"
	"errors"
	"fmt"
	"sfidfw/fw/common/config"
	"sfidfw/fw/common/logx"
	"sfidfw/fw/common/ttime"
	"sfidfw/fw/core/firewall"
	"sfidfw/fw/core/metrics"
	"sfidfw/fw/core/notify"
	"sfidfw/fw/core/traffic"
	"sfidfw/fw/db"
	"sfidfw/fw/db/dao"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type App struct {
	Cfg      *config.Config
	CfgPath  string
	MasterDB *db.DB
	LogDB    *db.DB // 事件历史，可为 nil

	Store           firewall.Store
	KV              *dao.KVStore // master 关闭时为 nil
	Coalescer       *dao.SaveCoalescer
	EventAggregator *dao.EventLogAggregator

	Hub     *notify.Hub
	Engine  *firewall.Engine
	Traffic *traffic.Generator // 未开启模拟流量时为 nil
	Metrics *metrics.Exporter  // 未开启 influxdb 时为 nil

	Day string

	stopOnce sync.Once
	Log      *logx.Logger
}

var log = logx.New(logx.WithPrefix("app"))

func New(cfgPath string) (*App, error) {
	cfg, usedPath, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg, usedPath)
}

// NewWithConfig 按配置组装：数据库 -> 存储 -> 通知 -> 引擎 -> 后台任务
func NewWithConfig(cfg *config.Config, cfgPath string) (*App, error) {
	a := &App{Cfg: cfg, CfgPath: cfgPath, Log: log}
	logx.SetLevelString(cfg.Logging.Level)
	if cfgPath == "" {
		a.Log.Infof("config: built-in defaults")
	} else {
		a.Log.Infof("config loaded from %s", cfgPath)
	}

	if err := a.openMaster(); err != nil {
		a.closeDBs()
		return nil, err
	}
	if err := a.openLog(); err != nil {
		a.closeDBs()
		return nil, err
	}

	a.Hub = notify.NewHub(0)
	opts := []firewall.Option{firewall.WithNotifier(notify.NewNotifier(a.Hub))}
	if a.EventAggregator != nil {
		opts = append(opts, firewall.WithRecorder(a.EventAggregator))
	}
	a.Engine = firewall.New(a.Store, firewall.Config{
		Enabled:     cfg.Firewall.Enabled,
		LogCapacity: cfg.Firewall.LogCapacity,
		Malicious:   cfg.Firewall.Malicious,
	}, opts...)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Engine.Load(ctx); err != nil {
		a.closeDBs()
		return nil, fmt.Errorf("load firewall state: %w", err)
	}

	if mt := cfg.Firewall.MockTraffic; mt.Enable {
		a.Traffic = traffic.NewGenerator(a.Engine, time.Duration(mt.IntervalSec)*time.Second)
	}
	if cfg.InfluxDB.Enable {
		a.Metrics = metrics.NewInfluxExporter(cfg.InfluxDB, a.Engine)
	}
	return a, nil
}

func (a *App) openMaster() error {
	master := a.Cfg.DB.Master
	if !master.Enable {
		a.Store = firewall.NewMemoryStore()
		a.Log.Warnf("master db disabled, state kept in memory only")
		return nil
	}
	a.Log.Debugf("opening master db: driver=%s", master.Driver)
	masterDB, err := db.OpenGorm(master.Driver, master.DSN, master.Pool)
	if err != nil {
		return fmt.Errorf("open master db: %w", err)
	}
	a.MasterDB = masterDB
	if err := db.MigrateMasterSQL(masterDB.GormDataSource, masterDB.Driver); err != nil {
		return fmt.Errorf("migrate master: %w", err)
	}
	// 日志缓冲每次评估都会写，合并后落库；规则/配置档同步写
	a.KV = dao.NewKVStore(masterDB.GormDataSource)
	a.Coalescer = dao.NewSaveCoalescer(a.KV, time.Second, firewall.KeyLogs)
	a.Store = a.Coalescer
	a.Log.Infof("master db connected (driver=%s)", masterDB.Driver)
	return nil
}

func (a *App) openLog() error {
	logCfg := a.Cfg.DB.Log
	if !logCfg.Enable {
		a.Log.Infof("log db disabled")
		return nil
	}
	a.Log.Debugf("opening log db: driver=%s", logCfg.Driver)
	logDB, err := db.OpenGorm(logCfg.Driver, logCfg.DSN, logCfg.Pool)
	if err != nil {
		return fmt.Errorf("open log db: %w", err)
	}
	a.LogDB = logDB
	day := ttime.Day(time.Now())
	if err := db.EnsureEventLogTable(logDB, day); err != nil {
		return fmt.Errorf("ensure event table for %s: %w", day, err)
	}
	a.Day = day
	a.EventAggregator = dao.NewEventLogAggregator(
		logDB.GormDataSource,
		logDB.Driver,
		func(d string) error { return db.EnsureEventLogTable(logDB, d) },
		time.Second,
		1000,
	)
	a.Log.Infof("log db connected (driver=%s, day=%s)", logDB.Driver, day)
	return nil
}

/* -------------------- 启动 & 运行 -------------------- */

// Start 启动写入侧的批处理 worker
func (a *App) Start() error {
	if a.Coalescer != nil {
		a.Coalescer.Start()
	}
	if a.EventAggregator != nil {
		a.EventAggregator.Start()
		a.Log.Infof("event aggregator started (batch=1000, flush=1s)")
	}
	return nil
}

// Run 运行 websocket hub、模拟流量、指标导出，直到 ctx 结束
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Hub.Run(ctx) })
	if a.Traffic != nil {
		g.Go(func() error { return a.Traffic.Run(ctx) })
	}
	if a.Metrics != nil {
		g.Go(func() error { return a.Metrics.Run(ctx) })
	}
	return g.Wait()
}

/* -------------------- 关闭 -------------------- */

// Stop 先落库缓冲数据再关闭数据库；可重复调用
func (a *App) Stop() error {
	var err error
	a.stopOnce.Do(func() {
		if a.Coalescer != nil {
			a.Coalescer.Shutdown()
			a.Log.Infof("save coalescer stopped")
		}
		if a.EventAggregator != nil {
			a.EventAggregator.Shutdown()
			a.Log.Infof("event aggregator stopped")
		}
		err = a.closeDBs()
		a.Log.Infof("app stopped")
	})
	return err
}

func (a *App) closeDBs() error {
	return errors.Join(a.MasterDB.Close(), a.LogDB.Close())
}
