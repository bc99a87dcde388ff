package api

import (
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"
)

// BuildVersion 可通过 -ldflags "-X 'sfidfw/fw/api.BuildVersion=1.2.3'" 注入
var BuildVersion = "latest"

var sysMonitor = newSysMonitor()

type hostInfo struct {
	Hostname      string `json:"hostname"`
	OS            string `json:"os"`
	Platform      string `json:"platform"`
	KernelVersion string `json:"kernel_version"`
	Arch          string `json:"arch"`
	Uptime        uint64 `json:"uptime"`
}

type cpuInfo struct {
	ModelName string  `json:"model_name"`
	Cores     int     `json:"cores"`
	Usage     float64 `json:"usage"`
	Load1     float64 `json:"load1"`
	Load5     float64 `json:"load5"`
	Load15    float64 `json:"load15"`
}

type memInfo struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Free        uint64  `json:"free"`
	UsedPercent float64 `json:"used_percent"`
}

type netTotal struct {
	RxBytes uint64 `json:"rx_bytes"`
	TxBytes uint64 `json:"tx_bytes"`
	RxBps   uint64 `json:"rx_bps"`
	TxBps   uint64 `json:"tx_bps"`
}

type firewallSummary struct {
	Enabled        bool   `json:"enabled"`
	CurrentProfile string `json:"current_profile"`
	ActiveRules    int    `json:"active_rules"`
	WSClients      int    `json:"ws_clients"`
}

type sysInfoResp struct {
	Timestamp int64 `json:"timestamp"`
	App       struct {
		StartAt   int64  `json:"start_at"`
		Version   string `json:"version"`
		GoVersion string `json:"go_version"`
	} `json:"app"`
	Host     hostInfo        `json:"host"`
	CPU      cpuInfo         `json:"cpu"`
	Memory   memInfo         `json:"memory"`
	NetTotal netTotal        `json:"net_total"`
	Firewall firewallSummary `json:"firewall"`
}

// sysMonitorT 记录上一次网卡累计值，用于计算速率
type sysMonitorT struct {
	mu      sync.Mutex
	lastAt  time.Time
	lastRx  uint64
	lastTx  uint64
	startAt time.Time
}

func newSysMonitor() *sysMonitorT {
	now := time.Now()
	return &sysMonitorT{lastAt: now, startAt: now}
}

// snapshot 采集失败的项留空（无权限 / 平台不支持）
func (m *sysMonitorT) snapshot() sysInfoResp {
	now := time.Now()
	var resp sysInfoResp
	resp.Timestamp = now.UnixMilli()
	resp.App.StartAt = m.startAt.UnixMilli()
	resp.App.Version = BuildVersion
	resp.App.GoVersion = runtime.Version()

	if hi, err := host.Info(); err == nil {
		resp.Host = hostInfo{
			Hostname: hi.Hostname, OS: hi.OS, Platform: hi.Platform,
			KernelVersion: hi.KernelVersion, Uptime: hi.Uptime,
		}
	}
	resp.Host.Arch = runtime.GOARCH

	resp.CPU.Cores, _ = cpu.Counts(true)
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		resp.CPU.ModelName = infos[0].ModelName
	}
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		resp.CPU.Usage = pct[0]
	}
	if ld, err := load.Avg(); err == nil {
		resp.CPU.Load1, resp.CPU.Load5, resp.CPU.Load15 = ld.Load1, ld.Load5, ld.Load15
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		resp.Memory = memInfo{Total: vm.Total, Used: vm.Used, Free: vm.Available, UsedPercent: vm.UsedPercent}
	}

	var rx, tx uint64
	if stats, err := gnet.IOCounters(true); err == nil {
		for _, s := range stats {
			n := strings.ToLower(s.Name)
			if strings.HasPrefix(n, "lo") || strings.Contains(n, "loopback") {
				continue
			}
			rx += s.BytesRecv
			tx += s.BytesSent
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	elapsed := now.Sub(m.lastAt).Seconds()
	if elapsed <= 0 {
		elapsed = 1
	}
	resp.NetTotal = netTotal{RxBytes: rx, TxBytes: tx}
	// 计数器回绕或网卡重置时速率记 0
	if rx >= m.lastRx && m.lastRx > 0 {
		resp.NetTotal.RxBps = uint64(float64(rx-m.lastRx) / elapsed)
	}
	if tx >= m.lastTx && m.lastTx > 0 {
		resp.NetTotal.TxBps = uint64(float64(tx-m.lastTx) / elapsed)
	}
	m.lastAt, m.lastRx, m.lastTx = now, rx, tx
	return resp
}

/*********** 控制器 ***********/
func (s *Server) systemInfo(c *gin.Context) {
	resp := sysMonitor.snapshot()
	info := s.App.Engine.Info()
	resp.Firewall = firewallSummary{
		Enabled:        info.Enabled,
		CurrentProfile: info.CurrentProfile,
		ActiveRules:    info.ActiveRules,
		WSClients:      s.App.Hub.Count(),
	}
	c.JSON(http.StatusOK, resp)
}
