package logx

import (
	"context"
	"fmt"
	"strings"
	"time"

	glogger "gorm.io/gorm/logger"
)

var gormExclude = []string{"gorm.io/gorm", "gorm.io/driver", "/database/sql", "runtime/", "/logx/"}

type gormLogger struct {
	level glogger.LogLevel
	slow  time.Duration
}

func NewGormLogger(level string, slowThreshold time.Duration) glogger.Interface {
	return &gormLogger{level: toGormLevel(level), slow: slowThreshold}
}

// GormLoggerDefault 慢查询阈值 500ms
func GormLoggerDefault(level string) glogger.Interface {
	return NewGormLogger(level, 500*time.Millisecond)
}

func (l *gormLogger) LogMode(level glogger.LogLevel) glogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *gormLogger) emit(at Level, msg string) {
	info, errW := gormWriters()
	dst := info
	if at >= Error {
		dst = errW
	}
	site := findCaller(gormExclude, 2)
	for _, line := range strings.Split(strings.TrimRight(msg, "\n"), "\n") {
		if strings.TrimSpace(line) != "" {
			writeLine(dst, at, site, "gorm", line)
		}
	}
}

func (l *gormLogger) Info(_ context.Context, s string, args ...any) {
	if l.level >= glogger.Info {
		l.emit(Info, fmt.Sprintf(s, args...))
	}
}

func (l *gormLogger) Warn(_ context.Context, s string, args ...any) {
	if l.level >= glogger.Warn {
		l.emit(Warn, fmt.Sprintf(s, args...))
	}
}

func (l *gormLogger) Error(_ context.Context, s string, args ...any) {
	if l.level >= glogger.Error {
		l.emit(Error, fmt.Sprintf(s, args...))
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level == glogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	rowStr := "-"
	if rows >= 0 {
		rowStr = fmt.Sprint(rows)
	}
	ms := float64(elapsed.Microseconds()) / 1000.0
	switch {
	case err != nil && err.Error() != "record not found" && l.level >= glogger.Error:
		l.emit(Error, fmt.Sprintf("[%.3fms] rows=%s %s | err=%v", ms, rowStr, sql, err))
	case l.slow > 0 && elapsed > l.slow && l.level >= glogger.Warn:
		l.emit(Warn, fmt.Sprintf("[SLOW >= %s] [%.3fms] rows=%s %s", l.slow, ms, rowStr, sql))
	case l.level >= glogger.Info:
		l.emit(Debug, fmt.Sprintf("[%.3fms] rows=%s %s", ms, rowStr, sql))
	}
}

// debug 打印 SQL；info 只报警告和慢查询
func toGormLevel(s string) glogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "silent", "off":
		return glogger.Silent
	case "error":
		return glogger.Error
	case "debug", "trace":
		return glogger.Info
	default:
		return glogger.Warn
	}
}
