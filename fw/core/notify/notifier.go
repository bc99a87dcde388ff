package notify

import (
	"sfidfw/fw/common/logx"
	"sfidfw/fw/common/ttime"
	"sfidfw/fw/core/firewall"

	"github.com/goccy/go-json"
)

type Broadcaster interface {
	Broadcast(msg []byte)
}

type Message struct {
	Type     string            `json:"type"`
	Message  string            `json:"message"`
	Severity firewall.Severity `json:"severity"`
	Time     ttime.Time        `json:"time"`
}

// Notifier 实现 firewall.Notifier：写日志并推送给前端
type Notifier struct {
	out Broadcaster
	log *logx.Logger
}

func NewNotifier(out Broadcaster) *Notifier {
	return &Notifier{out: out, log: logx.New(logx.WithPrefix("notify"))}
}

func (n *Notifier) Notify(message string, severity firewall.Severity) {
	switch severity {
	case firewall.SeverityError:
		n.log.Errorf("%s", message)
	case firewall.SeverityWarning:
		n.log.Warnf("%s", message)
	default:
		n.log.Infof("[%s] %s", severity, message)
	}
	if n.out == nil {
		return
	}
	b, err := json.Marshal(Message{Type: "notification", Message: message, Severity: severity, Time: ttime.Now()})
	if err != nil {
		n.log.Errorf("encode notification: %v", err)
		return
	}
	n.out.Broadcast(b)
}
