package firewall

import "testing"

func TestMatchPort(t *testing.T) {
	cases := []struct {
		spec string
		port int
		want bool
	}{
		{"any", 1, true},
		{"22", 22, true},
		{"22", 23, false},
		{"80,443", 443, true},
		{"80, 443", 443, true},
		{"80,443", 8080, false},
		{"6881-6889", 6881, true},
		{"6881-6889", 6885, true},
		{"6881-6889", 6889, true},
		{"6881-6889", 6890, false},
		{"22,6881-6889", 6880, false},
		{"abc", 80, false},
	}
	for _, c := range cases {
		if got := matchPort(c.spec, c.port); got != c.want {
			t.Errorf("matchPort(%q, %d): expected %v, got %v", c.spec, c.port, c.want, got)
		}
	}
}

func TestIsLocalAddress(t *testing.T) {
	cases := map[string]bool{
		"10.1.2.3":         true,
		"172.16.0.1":       true,
		"172.31.255.255":   true,
		"172.32.0.1":       false,
		"192.168.1.10":     true,
		"127.0.0.1":        true,
		"8.8.8.8":          false,
		"::ffff:10.0.0.1":  true,
		"example.internal": false,
		"":                 false,
	}
	for addr, want := range cases {
		if got := isLocalAddress(addr); got != want {
			t.Errorf("isLocalAddress(%q): expected %v, got %v", addr, want, got)
		}
	}
}

func TestAddressMatcher_Keywords(t *testing.T) {
	m := newAddressMatcher(DefaultMalicious)
	if !m.match(Any, "whatever") {
		t.Errorf("expected any to match everything")
	}
	if !m.match(Malicious, "203.0.113.1") {
		t.Errorf("expected 203.0.113.1 to be malicious")
	}
	if m.match(Malicious, "203.0.113.5") {
		t.Errorf("expected 203.0.113.5 not to be malicious")
	}
	if m.match(Local, "not-an-ip") {
		t.Errorf("expected non-ip string never to match local")
	}
	if !m.match("1.2.3.4", "1.2.3.4") || m.match("1.2.3.4", "1.2.3.5") {
		t.Errorf("expected literal addresses to compare by equality")
	}
}

func TestAddressMatcher_Matches(t *testing.T) {
	m := newAddressMatcher(nil)
	r := &Rule{Direction: DirectionInbound, Protocol: ProtocolTCP, Port: "22", Source: Any, Destination: Local}
	if !m.matches(r, inbound(ProtocolTCP, 22, "8.8.8.8", "192.168.1.10")) {
		t.Errorf("expected inbound ssh to local to match")
	}
	p := inbound(ProtocolTCP, 22, "8.8.8.8", "192.168.1.10")
	p.Direction = DirectionOutbound
	if m.matches(r, p) {
		t.Errorf("expected outbound packet not to match inbound rule")
	}
	if m.matches(r, inbound(ProtocolUDP, 22, "8.8.8.8", "192.168.1.10")) {
		t.Errorf("expected udp not to match tcp rule")
	}
	r.Direction, r.Protocol = DirectionBoth, ProtocolAny
	p.Protocol = ProtocolICMP
	if !m.matches(r, p) {
		t.Errorf("expected both/any rule to match outbound icmp")
	}
}
