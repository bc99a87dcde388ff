package notify

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"sfidfw/fw/core/firewall"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

type captured struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (c *captured) Broadcast(msg []byte) {
	c.mu.Lock()
	c.msgs = append(c.msgs, msg)
	c.mu.Unlock()
}

func TestNotifier_Broadcasts(t *testing.T) {
	out := &captured{}
	n := NewNotifier(out)
	n.Notify("Rule added", firewall.SeveritySuccess)

	if len(out.msgs) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(out.msgs))
	}
	var m Message
	if err := json.Unmarshal(out.msgs[0], &m); err != nil {
		t.Fatal(err)
	}
	if m.Type != "notification" || m.Message != "Rule added" || m.Severity != firewall.SeveritySuccess || m.Time.IsZero() {
		t.Errorf("unexpected message %+v", m)
	}
	NewNotifier(nil).Notify("log only", firewall.SeverityError)
}

func TestHub_DeliversToClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub(time.Second)
	go func() { _ = h.Run(ctx) }()
	r := gin.New()
	r.GET("/api/ws", h.Handle)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if h.Count() != 1 {
		t.Fatalf("expected 1 registered connection, got %d", h.Count())
	}

	NewNotifier(h).Notify("Firewall disabled", firewall.SeverityWarning)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if m.Message != "Firewall disabled" || m.Severity != firewall.SeverityWarning {
		t.Errorf("unexpected message %+v", m)
	}

	_ = conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for h.Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if h.Count() != 0 {
		t.Errorf("expected connection to unregister after close")
	}
}
