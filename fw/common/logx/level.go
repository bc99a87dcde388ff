package logx

import (
	"strings"
	"sync/atomic"
)

type Level int32

const (
	Trace Level = iota
	Debug
	Info
	Warn
	Error
	Off
)

var globalLevel = int32(Info)

var levelNames = [...]string{"trace", "debug", "info", "warn", "error", "off"}

// ParseLevel 无法识别时返回 Error
func ParseLevel(s string) Level {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case "warning":
		return Warn
	case "silent":
		return Off
	}
	for i, n := range levelNames {
		if n == s {
			return Level(i)
		}
	}
	return Error
}

func (l Level) String() string {
	if l < Trace || l > Off {
		return "error"
	}
	return levelNames[l]
}

func (l Level) tag() string {
	if l < Trace || l >= Off {
		return "[ERROR]"
	}
	return "[" + strings.ToUpper(levelNames[l]) + "]"
}

func SetLevel(l Level)        { atomic.StoreInt32(&globalLevel, int32(l)) }
func SetLevelString(s string) { SetLevel(ParseLevel(s)) }
func GetLevel() Level         { return Level(atomic.LoadInt32(&globalLevel)) }
func GetLevelString() string  { return GetLevel().String() }
