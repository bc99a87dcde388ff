package traffic

import (
	"context"
	"sfidfw/fw/common/logx"
	"sfidfw/fw/core/firewall"
	"time"
)

var log = logx.New(logx.WithPrefix("traffic"))

type Evaluator interface {
	Enabled() bool
	Evaluate(ctx context.Context, p firewall.Packet) firewall.Decision
}

// MockPackets 每轮发送的模拟流量
var MockPackets = []firewall.Packet{
	{Direction: firewall.DirectionInbound, Protocol: firewall.ProtocolTCP, Port: 80, Source: "8.8.8.8", Destination: "192.168.1.100"},
	{Direction: firewall.DirectionInbound, Protocol: firewall.ProtocolTCP, Port: 22, Source: "203.0.113.5", Destination: "192.168.1.100"},
	{Direction: firewall.DirectionOutbound, Protocol: firewall.ProtocolUDP, Port: 53, Source: "192.168.1.100", Destination: "8.8.8.8"},
	{Direction: firewall.DirectionInbound, Protocol: firewall.ProtocolTCP, Port: 443, Source: "192.0.2.1", Destination: "192.168.1.100"},
}

// Generator 防火墙开启期间按固定间隔评估 MockPackets
type Generator struct {
	engine   Evaluator
	interval time.Duration
	packets  []firewall.Packet
}

func NewGenerator(engine Evaluator, interval time.Duration) *Generator {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Generator{engine: engine, interval: interval, packets: MockPackets}
}

// Run 阻塞直到 ctx 结束
func (g *Generator) Run(ctx context.Context) error {
	log.Infof("started interval=%s packets=%d", g.interval, len(g.packets))
	tk := time.NewTicker(g.interval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Infof("stopped")
			return nil
		case <-tk.C:
			g.Tick(ctx)
		}
	}
}

// Tick 一轮；防火墙关闭时跳过，返回评估的包数
func (g *Generator) Tick(ctx context.Context) int {
	if !g.engine.Enabled() {
		return 0
	}
	blocked := 0
	for _, p := range g.packets {
		if g.engine.Evaluate(ctx, p).Action == firewall.ActionBlock {
			blocked++
		}
	}
	log.Debugf("tick evaluated=%d blocked=%d", len(g.packets), blocked)
	return len(g.packets)
}
