package firewall

import (
	"strings"
	"time"
)

type Action string

const (
	ActionAllow Action = "allow"
	ActionBlock Action = "block"
)

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
	DirectionBoth     Direction = "both"
)

type Protocol string

const (
	ProtocolTCP  Protocol = "tcp"
	ProtocolUDP  Protocol = "udp"
	ProtocolICMP Protocol = "icmp"
	ProtocolAny  Protocol = "any"
)

// 地址/端口关键字
const (
	Any       = "any"
	Local     = "local"
	Malicious = "malicious"
)

// 日志命中原因
const (
	ReasonRule     = "rule"
	ReasonDefault  = "default"
	ReasonDisabled = "firewall_disabled"
)

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeverityError   Severity = "error"
)

type Rule struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Enabled     bool      `json:"enabled"`
	Action      Action    `json:"action"`
	Direction   Direction `json:"direction"`
	Protocol    Protocol  `json:"protocol"`
	Port        string    `json:"port"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	Priority    int       `json:"priority"`
	Created     time.Time `json:"created"`
}

// RuleInput 创建规则的入参；nil 表示未提供，走默认值
type RuleInput struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Enabled     *bool      `json:"enabled"`
	Action      *Action    `json:"action"`
	Direction   *Direction `json:"direction"`
	Protocol    *Protocol  `json:"protocol"`
	Port        *string    `json:"port"`
	Source      *string    `json:"source"`
	Destination *string    `json:"destination"`
	Priority    *int       `json:"priority"`
}

// RulePatch 编辑规则的入参：浅合并，只改非 nil 字段
type RulePatch = RuleInput

type Profile struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"displayName"`
	Rules       []int64 `json:"rules"`
	IsDefault   bool    `json:"isDefault"`
}

type ProfileInput struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"displayName"`
	Rules       []int64 `json:"rules"`
}

func (p Profile) Has(id int64) bool {
	for _, v := range p.Rules {
		if v == id {
			return true
		}
	}
	return false
}

type Packet struct {
	Direction   Direction `json:"direction"`
	Protocol    Protocol  `json:"protocol"`
	Port        int       `json:"port"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
}

type Decision struct {
	Action Action `json:"action"`
	RuleID int64  `json:"ruleId"` // 0 = 未命中规则（见 Reason）
	Reason string `json:"reason"`
}

type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Packet    Packet    `json:"packet"`
	Action    Action    `json:"action"`
	RuleID    int64     `json:"ruleId"`
	Reason    string    `json:"reason"`
}

type Statistics struct {
	Blocked   int64   `json:"blocked"`
	Allowed   int64   `json:"allowed"`
	Total     int64   `json:"total"`
	BlockRate float64 `json:"blockRate"`
}

type Info struct {
	Enabled        bool       `json:"isEnabled"`
	CurrentProfile string     `json:"currentProfile"`
	TotalRules     int        `json:"totalRules"`
	ActiveRules    int        `json:"activeRules"`
	Statistics     Statistics `json:"statistics"`
}

// isKeyword: any/local/malicious 以外的都是字面地址
func isKeyword(addr string) bool {
	switch strings.TrimSpace(addr) {
	case Any, Local, Malicious:
		return true
	default:
		return false
	}
}

func (r Rule) input() RuleInput {
	return RuleInput{
		Name:        &r.Name,
		Description: &r.Description,
		Enabled:     &r.Enabled,
		Action:      &r.Action,
		Direction:   &r.Direction,
		Protocol:    &r.Protocol,
		Port:        &r.Port,
		Source:      &r.Source,
		Destination: &r.Destination,
		Priority:    &r.Priority,
	}
}
