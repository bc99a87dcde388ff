package dao

import (
	"context"
	"errors"
	"sfidfw/fw/common/logx"
	"sfidfw/fw/core/firewall"
	"sync"
	"time"
)

var daoCoalescerLog = logx.New(logx.WithPrefix("dao.save_coalescer"))

// SaveCoalescer 包装一个 Store：hot key 的写入只保留最新值，由后台按周期批量落库；
// 其余 key 直接同步写。Load 优先返回尚未落库的最新值。
type SaveCoalescer struct {
	next       firewall.Store
	hot        map[string]bool
	flushEvery time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	flushMu sync.Mutex // 串行化 flush，保证落库顺序与写入顺序一致

	mu      sync.Mutex
	pending map[string][]byte
	closed  bool
}

func NewSaveCoalescer(next firewall.Store, flushEvery time.Duration, hotKeys ...string) *SaveCoalescer {
	if flushEvery <= 0 {
		flushEvery = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &SaveCoalescer{
		next:       next,
		hot:        make(map[string]bool, len(hotKeys)),
		flushEvery: flushEvery,
		ctx:        ctx,
		cancel:     cancel,
		pending:    make(map[string][]byte),
	}
	for _, k := range hotKeys {
		c.hot[k] = true
	}
	return c
}

func (c *SaveCoalescer) Start() {
	c.wg.Add(1)
	go c.worker()
	daoCoalescerLog.Infof("started flushEvery=%v hot=%d", c.flushEvery, len(c.hot))
}

// Shutdown 停止后台并把剩余数据写完
func (c *SaveCoalescer) Shutdown() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
	_ = c.flush() // 未 Start 时也要落库
	daoCoalescerLog.Infof("shutdown done")
}

func (c *SaveCoalescer) Load(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	b, ok := c.pending[key]
	c.mu.Unlock()
	if ok {
		out := make([]byte, len(b))
		copy(out, b)
		return out, true, nil
	}
	return c.next.Load(ctx, key)
}

// Save 关闭后 hot key 仍先进 pending 再同步 flush，不会被 Shutdown 的最后一次 flush 漏掉或被旧值覆盖
func (c *SaveCoalescer) Save(ctx context.Context, key string, data []byte) error {
	if !c.hot[key] {
		return c.next.Save(ctx, key, data)
	}
	b := make([]byte, len(data))
	copy(b, data)
	c.mu.Lock()
	c.pending[key] = b
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return c.flush()
	}
	return nil
}

func (c *SaveCoalescer) worker() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.flushEvery)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			_ = c.flush()
		}
	}
}

// flush 失败的 key 在没有更新值的情况下放回，下一轮重试
func (c *SaveCoalescer) flush() error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.Lock()
	batch := c.pending
	c.pending = make(map[string][]byte, len(batch))
	c.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var errs []error
	for k, v := range batch {
		if err := c.next.Save(ctx, k, v); err != nil {
			errs = append(errs, err)
			daoCoalescerLog.Warnf("flush key=%s failed, retry next tick: %v", k, err)
			c.mu.Lock()
			if _, newer := c.pending[k]; !newer {
				c.pending[k] = v
			}
			c.mu.Unlock()
			continue
		}
		daoCoalescerLog.Tracef("flushed key=%s size=%d", k, len(v))
	}
	return errors.Join(errs...)
}
