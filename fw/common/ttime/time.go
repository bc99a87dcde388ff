package ttime

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	LayoutDateTime = "2006-01-02 15:04:05"
	LayoutDate     = "2006-01-02"
	LayoutDay      = "20060102" // 按天分表的表名后缀
)

// Time 库里存本地时区的 "2006-01-02 15:04:05" 字符串，JSON 同样输出该格式
type Time struct {
	time.Time
}

func Of(t time.Time) Time { return Time{Time: t} }

func Now() Time { return Time{Time: time.Now()} }

func (t Time) String() string {
	if t.IsZero() {
		return ""
	}
	return t.In(time.Local).Format(LayoutDateTime)
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*t = Time{}
		return nil
	}
	v, err := Parse(s)
	if err != nil {
		return fmt.Errorf("ttime: %w", err)
	}
	t.Time = v
	return nil
}

func (t *Time) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*t = Time{}
		return nil
	case time.Time:
		t.Time = v.In(time.Local)
		return nil
	case string:
		return t.scanString(v)
	case []byte:
		return t.scanString(string(v))
	}
	return fmt.Errorf("ttime: unsupported scan type %T", value)
}

func (t *Time) scanString(s string) error {
	s = strings.TrimSpace(s)
	if s == "" || s == "0000-00-00 00:00:00" {
		*t = Time{}
		return nil
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	t.Time = v
	return nil
}

// Value 零值写 NULL
func (t Time) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.String(), nil
}

// 带偏移的按原偏移解析，其余按本地时区解释
var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999 -0700",
		"2006-01-02 15:04:05.999999999 MST",
	}
	localLayouts = []string{
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05.999999999",
		LayoutDate,
	}
)

// Parse 多格式解析，结果统一为本地时区
func Parse(s string) (time.Time, error) {
	for _, l := range zonedLayouts {
		if v, err := time.Parse(l, s); err == nil {
			return v.In(time.Local), nil
		}
	}
	for _, l := range localLayouts {
		if v, err := time.ParseInLocation(l, s, time.Local); err == nil {
			return v, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q", s)
}

// Day 按天分表用的日期，如 20250906
func Day(t time.Time) string { return t.In(time.Local).Format(LayoutDay) }

// ParseDay 解析 YYYYMMDD / YYYY-MM-DD
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range []string{LayoutDay, LayoutDate} {
		if v, err := time.ParseInLocation(l, s, time.Local); err == nil {
			return v, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid day %q", s)
}
