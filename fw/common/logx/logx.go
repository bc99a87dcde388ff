package logx

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

const tsLayout = "2006/01/02 15:04:05.000000"

// Logger 组件日志：ts file:line: [LEVEL] prefix - message
type Logger struct {
	level int32 // <0 跟随全局
	pfx   atomic.Value
}

type Option func(*Logger)

func WithPrefix(p string) Option { return func(l *Logger) { l.pfx.Store(strings.TrimSpace(p)) } }

func WithLogLevel(lvl Level) Option {
	return func(l *Logger) { atomic.StoreInt32(&l.level, int32(lvl)) }
}

func New(opts ...Option) *Logger {
	l := &Logger{level: -1}
	l.pfx.Store("")
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Logger) SetPrefix(p string) { l.pfx.Store(strings.TrimSpace(p)) }
func (l *Logger) SetLevel(lv Level)  { atomic.StoreInt32(&l.level, int32(lv)) }

func (l *Logger) Enabled(at Level) bool {
	eff := GetLevel()
	if lv := atomic.LoadInt32(&l.level); lv >= 0 {
		eff = Level(lv)
	}
	return eff <= at && at < Off
}

func (l *Logger) Tracef(format string, args ...any) { l.logf(Trace, format, args...) }
func (l *Logger) Debugf(format string, args ...any) { l.logf(Debug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(Info, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(Warn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(Error, format, args...) }

func (l *Logger) logf(at Level, format string, args ...any) {
	if !l.Enabled(at) {
		return
	}
	site := "-"
	// 0 logf, 1 Infof..., 2 调用方
	if _, f, ln, ok := runtime.Caller(2); ok {
		site = fmt.Sprintf("%s:%d", filepath.Base(f), ln)
	}
	var b bytes.Buffer
	b.WriteString(time.Now().Format(tsLayout))
	b.WriteByte(' ')
	b.WriteString(site)
	b.WriteString(": ")
	b.WriteString(at.tag())
	if pfx := l.pfx.Load().(string); pfx != "" {
		b.WriteByte(' ')
		b.WriteString(pfx)
	}
	b.WriteString(" - ")
	fmt.Fprintf(&b, format, args...)
	b.WriteByte('\n')
	_, _ = appWriter(at).Write(b.Bytes())
}

// writeLine 供 gin/gorm 适配器复用同一行格式
func writeLine(dst io.Writer, at Level, site, component, msg string) int {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %s: %s %s - %s\n", time.Now().Format(tsLayout), site, at.tag(), component, msg)
	n, _ := dst.Write(b.Bytes())
	return n
}

// 跳过库自身的栈帧，定位业务代码位置
func findCaller(excludes []string, skip int) string {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2+skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		fr, more := frames.Next()
		if fr.File != "" && !containsAny(fr.File, excludes) {
			return fmt.Sprintf("%s:%d", filepath.Base(fr.File), fr.Line)
		}
		if !more {
			return "-"
		}
	}
}

func containsAny(s string, subs []string) bool {
	for _, x := range subs {
		if strings.Contains(s, x) {
			return true
		}
	}
	return false
}
