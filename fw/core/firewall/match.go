package firewall

import (
	"net/netip"
	"strconv"
	"strings"
)

var privatePrefixes = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("127.0.0.0/8"),
}

// DefaultMalicious 内置黑名单
var DefaultMalicious = []string{"192.0.2.1", "203.0.113.1", "198.51.100.1"}

type PortRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (r PortRange) Contains(p int) bool {
	return p >= r.Min && p <= r.Max
}

// parsePortToken: "80" / "6881-6889"；无法解析返回 ok=false
func parsePortToken(tok string) (PortRange, bool) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return PortRange{}, false
	}
	if i := strings.IndexByte(tok, '-'); i >= 0 {
		lo, err1 := strconv.Atoi(strings.TrimSpace(tok[:i]))
		hi, err2 := strconv.Atoi(strings.TrimSpace(tok[i+1:]))
		if err1 != nil || err2 != nil {
			return PortRange{}, false
		}
		return PortRange{Min: lo, Max: hi}, true
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return PortRange{}, false
	}
	return PortRange{Min: n, Max: n}, true
}

func matchPort(spec string, port int) bool {
	if strings.TrimSpace(spec) == Any {
		return true
	}
	for _, tok := range strings.Split(spec, ",") {
		if r, ok := parsePortToken(tok); ok && r.Contains(port) {
			return true
		}
	}
	return false
}

func isLocalAddress(addr string) bool {
	ip, err := netip.ParseAddr(strings.TrimSpace(addr))
	if err != nil {
		return false
	}
	ip = ip.Unmap()
	for _, p := range privatePrefixes {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}

type addressMatcher struct {
	malicious map[string]struct{}
}

func newAddressMatcher(malicious []string) addressMatcher {
	m := make(map[string]struct{}, len(malicious))
	for _, ip := range malicious {
		if ip = strings.TrimSpace(ip); ip != "" {
			m[ip] = struct{}{}
		}
	}
	return addressMatcher{malicious: m}
}

func (a addressMatcher) isMalicious(addr string) bool {
	_, ok := a.malicious[addr]
	return ok
}

func (a addressMatcher) match(ruleAddr, addr string) bool {
	switch ruleAddr {
	case Any:
		return true
	case Local:
		return isLocalAddress(addr)
	case Malicious:
		return a.isMalicious(addr)
	default:
		return ruleAddr == addr
	}
}

// matches: 方向、协议、端口、源、目的 全部满足
func (a addressMatcher) matches(r *Rule, p Packet) bool {
	if r.Direction != DirectionBoth && r.Direction != p.Direction {
		return false
	}
	if r.Protocol != ProtocolAny && r.Protocol != p.Protocol {
		return false
	}
	if !matchPort(r.Port, p.Port) {
		return false
	}
	if !a.match(r.Source, p.Source) {
		return false
	}
	return a.match(r.Destination, p.Destination)
}
