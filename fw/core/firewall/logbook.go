package firewall

import (
	"math"
	"sync"
)

const (
	DefaultLogCapacity = 1000
	DefaultLogLimit    = 50
)

// logbook 定长环形日志 + 计数器，独立于规则锁
type logbook struct {
	mu    sync.Mutex
	buf   []LogEntry
	head  int // 下一个写入位置
	size  int
	stats Statistics
}

func newLogbook(capacity int) *logbook {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &logbook{buf: make([]LogEntry, capacity)}
}

// append 写入一条并计数；满了覆盖最旧的
func (l *logbook) append(e LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf[l.head] = e
	l.head = (l.head + 1) % len(l.buf)
	if l.size < len(l.buf) {
		l.size++
	}
	l.stats.Total++
	switch e.Action {
	case ActionBlock:
		l.stats.Blocked++
	case ActionAllow:
		l.stats.Allowed++
	}
}

// recent 最新在前；limit<=0 返回全部
func (l *logbook) recent(limit int) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := l.size
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]LogEntry, 0, n)
	for i := 1; i <= n; i++ {
		idx := (l.head - i + len(l.buf)) % len(l.buf)
		out = append(out, l.buf[idx])
	}
	return out
}

// restore 用持久化的日志（最新在前）重建缓冲区，不影响计数
func (l *logbook) restore(entries []LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(entries) > len(l.buf) {
		entries = entries[:len(l.buf)]
	}
	l.head, l.size = 0, 0
	for i := len(entries) - 1; i >= 0; i-- {
		l.buf[l.head] = entries[i]
		l.head = (l.head + 1) % len(l.buf)
		l.size++
	}
}

func (l *logbook) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.buf {
		l.buf[i] = LogEntry{}
	}
	l.head, l.size = 0, 0
}

func (l *logbook) statistics() Statistics {
	l.mu.Lock()
	s := l.stats
	l.mu.Unlock()
	if s.Total > 0 {
		s.BlockRate = math.Round(float64(s.Blocked)/float64(s.Total)*100*100) / 100
	}
	return s
}

func (l *logbook) resetStatistics() {
	l.mu.Lock()
	l.stats = Statistics{}
	l.mu.Unlock()
}
