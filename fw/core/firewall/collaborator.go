package firewall

import (
	"context"
	"sync"
)

// 存储键
const (
	KeyRules    = "sfid_firewall_rules"
	KeyProfiles = "sfid_firewall_profiles"
	KeyLogs     = "sfid_firewall_logs"
)

// Store 持久化协作方：不透明 KV。key 不存在时 ok=false。
type Store interface {
	Load(ctx context.Context, key string) (data []byte, ok bool, err error)
	Save(ctx context.Context, key string, data []byte) error
}

// Notifier 面向用户的通知（UI 协作方）
type Notifier interface {
	Notify(message string, severity Severity)
}

// Recorder 可选：接收每一条日志，用于长期留存
type Recorder interface {
	Record(entry LogEntry)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, Severity) {}

/******** MemoryStore ********/

// MemoryStore 进程内 KV，用于测试和未启用数据库的场景
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, true, nil
}

func (s *MemoryStore) Save(_ context.Context, key string, data []byte) error {
	b := make([]byte, len(data))
	copy(b, data)
	s.mu.Lock()
	s.m[key] = b
	s.mu.Unlock()
	return nil
}
