package metrics

import (
	"context"
	"sfidfw/fw/common/config"
	"sfidfw/fw/common/logx"
	"sfidfw/fw/core/firewall"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

var log = logx.New(logx.WithPrefix("metrics"))

const Measurement = "firewall_stats"

type Source interface {
	Info() firewall.Info
}

// Writer api.WriteAPI 的子集
type Writer interface {
	WritePoint(p *write.Point)
	Flush()
	Errors() <-chan error
}

// Exporter 定时把统计写入 InfluxDB（非阻塞 WriteAPI，错误异步读出后记日志）
type Exporter struct {
	src      Source
	w        Writer
	interval time.Duration
	close    func()
}

func NewExporter(src Source, w Writer, interval time.Duration) *Exporter {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Exporter{src: src, w: w, interval: interval, close: func() {}}
}

func NewInfluxExporter(cfg config.InfluxDB2Config, src Source) *Exporter {
	opts := influxdb2.DefaultOptions().
		SetBatchSize(50).
		SetFlushInterval(uint(cfg.IntervalSec) * 1000)
	client := influxdb2.NewClientWithOptions(cfg.BaseURL, cfg.Token, opts)
	e := NewExporter(src, client.WriteAPI(cfg.Org, cfg.Bucket), time.Duration(cfg.IntervalSec)*time.Second)
	e.close = client.Close
	log.Infof("influxdb exporter url=%s org=%s bucket=%s interval=%s", cfg.BaseURL, cfg.Org, cfg.Bucket, e.interval)
	return e
}

func (e *Exporter) Point(now time.Time) *write.Point {
	info := e.src.Info()
	s := info.Statistics
	return influxdb2.NewPoint(Measurement,
		map[string]string{"profile": info.CurrentProfile},
		map[string]any{
			"blocked":      s.Blocked,
			"allowed":      s.Allowed,
			"total":        s.Total,
			"block_rate":   s.BlockRate,
			"active_rules": int64(info.ActiveRules),
			"enabled":      info.Enabled,
		},
		now)
}

// Run 阻塞直到 ctx 结束；结束时 Flush 并关闭客户端
func (e *Exporter) Run(ctx context.Context) error {
	errs := e.w.Errors()
	tk := time.NewTicker(e.interval)
	defer func() {
		tk.Stop()
		e.w.Flush()
		e.close()
		log.Infof("stopped")
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Warnf("write failed: %v", err)
		case now := <-tk.C:
			e.w.WritePoint(e.Point(now))
		}
	}
}
