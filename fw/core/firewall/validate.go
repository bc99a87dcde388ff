package firewall

import (
	"fmt"
	"net/netip"
	"strings"

	"golang.org/x/net/idna"
)

const minNameLen = 3

// ValidateRule 返回违规列表（空 = 合法）。未提供的 action/direction/protocol 视为非法。
func ValidateRule(in RuleInput) []string {
	var errs []string
	if in.Name == nil || len([]rune(strings.TrimSpace(*in.Name))) < minNameLen {
		errs = append(errs, fmt.Sprintf("rule name must be at least %d characters", minNameLen))
	}
	if in.Action == nil || !validAction(*in.Action) {
		errs = append(errs, "invalid action")
	}
	if in.Direction == nil || !validDirection(*in.Direction) {
		errs = append(errs, "invalid direction")
	}
	if in.Protocol == nil || !validProtocol(*in.Protocol) {
		errs = append(errs, "invalid protocol")
	}
	if in.Port != nil {
		if msg := checkPortSpec(*in.Port); msg != "" {
			errs = append(errs, msg)
		}
	}
	if in.Source != nil {
		if msg := checkAddressSpec("source", *in.Source); msg != "" {
			errs = append(errs, msg)
		}
	}
	if in.Destination != nil {
		if msg := checkAddressSpec("destination", *in.Destination); msg != "" {
			errs = append(errs, msg)
		}
	}
	return errs
}

func validAction(a Action) bool { return a == ActionAllow || a == ActionBlock }

func validDirection(d Direction) bool {
	switch d {
	case DirectionInbound, DirectionOutbound, DirectionBoth:
		return true
	}
	return false
}

func validProtocol(p Protocol) bool {
	switch p {
	case ProtocolTCP, ProtocolUDP, ProtocolICMP, ProtocolAny:
		return true
	}
	return false
}

func checkPortSpec(spec string) string {
	spec = strings.TrimSpace(spec)
	if spec == Any {
		return ""
	}
	if spec == "" {
		return "port must be \"any\" or a list of ports/ranges"
	}
	for _, tok := range strings.Split(spec, ",") {
		r, ok := parsePortToken(tok)
		if !ok {
			return fmt.Sprintf("invalid port token %q", strings.TrimSpace(tok))
		}
		if r.Min < 0 || r.Max > 65535 || r.Min > r.Max {
			return fmt.Sprintf("port token %q out of range", strings.TrimSpace(tok))
		}
	}
	return ""
}

// 关键字 / IP / 合法主机名（IDNA）
func checkAddressSpec(field, addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return field + " address required"
	}
	if isKeyword(addr) {
		return ""
	}
	if _, err := netip.ParseAddr(addr); err == nil {
		return ""
	}
	if _, err := idna.Lookup.ToASCII(addr); err != nil {
		return fmt.Sprintf("invalid %s address %q", field, addr)
	}
	return ""
}
