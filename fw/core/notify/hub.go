package notify

import (
	"context"
	"net/http"
	"sfidfw/fw/common/logx"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var hubLog = logx.New(logx.WithPrefix("notify.hub"))

// Hub 广播通知给所有已连接的 websocket 客户端
type Hub struct {
	mu           sync.RWMutex
	conns        map[uint64]*wsConn
	register     chan *wsConn
	unregister   chan *wsConn
	done         chan struct{}
	pingInterval time.Duration
	nextID       atomic.Uint64
	upgrader     websocket.Upgrader
}

func NewHub(pingInterval time.Duration) *Hub {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Hub{
		conns:        make(map[uint64]*wsConn),
		register:     make(chan *wsConn),
		unregister:   make(chan *wsConn),
		done:         make(chan struct{}),
		pingInterval: pingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// 跨域已由 CORS 中间件控制
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Run 处理注册/注销，ctx 结束时关闭所有连接
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.conns[c.id] = c
			n := len(h.conns)
			h.mu.Unlock()
			hubLog.Debugf("connected conn=%d total=%d", c.id, n)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.conns[c.id]; ok {
				delete(h.conns, c.id)
				close(c.send)
			}
			n := len(h.conns)
			h.mu.Unlock()
			hubLog.Debugf("disconnected conn=%d total=%d", c.id, n)

		case <-ctx.Done():
			h.mu.Lock()
			for id, c := range h.conns {
				close(c.send)
				delete(h.conns, id)
			}
			h.mu.Unlock()
			return nil
		}
	}
}

// Handle GET /api/ws
func (h *Hub) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hubLog.Warnf("upgrade: %v", err)
		return
	}
	wc := &wsConn{id: h.nextID.Add(1), conn: conn, send: make(chan []byte, 64)}
	select {
	case h.register <- wc:
	case <-h.done:
		_ = conn.Close()
		return
	case <-c.Request.Context().Done():
		_ = conn.Close()
		return
	}
	go wc.writePump(h)
	go wc.readPump(h)
}

// Broadcast 慢客户端（发送队列满）直接丢弃该条
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.conns {
		select {
		case c.send <- msg:
		default:
			hubLog.Tracef("drop message for slow conn=%d", c.id)
		}
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
