package model

import (
	"fmt"
	"strings"
)

const EventTablePrefix = "firewall_event_"

// FirewallEvent 评估历史，按天分表
type FirewallEvent struct {
	Id          int64  `gorm:"column:id" json:"id"`
	Time        int64  `gorm:"column:time" json:"time"` // 毫秒
	Direction   string `gorm:"column:direction" json:"direction"`
	Protocol    string `gorm:"column:protocol" json:"protocol"`
	Port        int    `gorm:"column:port" json:"port"`
	Source      string `gorm:"column:source" json:"source"`
	Destination string `gorm:"column:destination" json:"destination"`
	Action      string `gorm:"column:action" json:"action"`
	RuleId      int64  `gorm:"column:rule_id" json:"ruleId"`
	Reason      string `gorm:"column:reason" json:"reason"`
}

func EventTable(day string) string {
	return fmt.Sprintf("%s%s", EventTablePrefix, day) // e.g. 20250906
}

// DayOfEventTable firewall_event_20250906 -> 20250906
func DayOfEventTable(tbl string) (string, bool) {
	day, ok := strings.CutPrefix(tbl, EventTablePrefix)
	return day, ok && len(day) == 8
}
