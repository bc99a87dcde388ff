package firewall

import (
	"sync"
	"time"
)

// idGen 单调递增：max(last+1, 当前毫秒)，避免同一毫秒内重复，也不会撞上默认规则的小 ID
type idGen struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func newIDGen(now func() time.Time) *idGen {
	return &idGen{now: now}
}

// seed 载入已有规则后调用，保证新 ID 大于现存最大 ID
func (g *idGen) seed(ids ...int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range ids {
		if id > g.last {
			g.last = id
		}
	}
}

func (g *idGen) next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}
