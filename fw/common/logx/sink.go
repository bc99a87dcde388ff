package logx

import (
	"io"
	"os"
	"path/filepath"
	"sfidfw/fw/common"
	"sync"

	"github.com/gin-gonic/gin"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options 滚动日志文件参数；Dir 为空时按平台取默认目录
type Options struct {
	Dir        string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type sinks struct {
	appInfo, appErr   io.Writer
	ginInfo, ginErr   io.Writer
	gormInfo, gormErr io.Writer
}

var (
	sinkMu sync.RWMutex
	cur    = consoleSinks()

	initOnce sync.Once
	closers  []io.Closer
)

func consoleSinks() sinks {
	return sinks{
		appInfo: os.Stdout, appErr: os.Stderr,
		ginInfo: os.Stdout, ginErr: os.Stderr,
		gormInfo: os.Stdout, gormErr: os.Stderr,
	}
}

func appWriter(at Level) io.Writer {
	sinkMu.RLock()
	defer sinkMu.RUnlock()
	if at >= Error {
		return cur.appErr
	}
	return cur.appInfo
}

func gormWriters() (info, err io.Writer) {
	sinkMu.RLock()
	defer sinkMu.RUnlock()
	return cur.gormInfo, cur.gormErr
}

func ginWriters() (info, err io.Writer) {
	sinkMu.RLock()
	defer sinkMu.RUnlock()
	return cur.ginInfo, cur.ginErr
}

// SetOutput 把全部输出重定向到 info/err（测试用）
func SetOutput(info, errW io.Writer) {
	sinkMu.Lock()
	cur = sinks{appInfo: info, appErr: errW, ginInfo: info, ginErr: errW, gormInfo: info, gormErr: errW}
	sinkMu.Unlock()
}

func DefaultDir() string {
	if common.IsDesktop() {
		return "log"
	}
	return "/var/log/sfidfw"
}

// levelWriter 终端输出受全局级别门控，文件照写
type levelWriter struct {
	min Level
	dst io.Writer
}

func (w levelWriter) Write(p []byte) (int, error) {
	if GetLevel() <= w.min {
		return w.dst.Write(p)
	}
	return len(p), nil
}

func (o Options) rolling(name string) *lumberjack.Logger {
	dir := o.Dir
	if dir == "" {
		dir = DefaultDir()
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    o.MaxSizeMB,
		MaxBackups: o.MaxBackups,
		MaxAge:     o.MaxAgeDays,
		Compress:   o.Compress,
	}
}

// MustInit 打开滚动文件（info/error 各一份，分 app/gin/gorm），接管 gin 默认输出。只生效一次。
func MustInit(o Options) {
	initOnce.Do(func() {
		dir := o.Dir
		if dir == "" {
			dir = DefaultDir()
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			panic(err)
		}
		files := map[string]*lumberjack.Logger{}
		for _, n := range []string{"info.log", "error.log", "gin_info.log", "gin_error.log", "gorm_info.log", "gorm_error.log"} {
			files[n] = o.rolling(n)
			closers = append(closers, files[n])
		}

		s := sinks{
			appInfo:  io.MultiWriter(os.Stdout, files["info.log"]),
			appErr:   io.MultiWriter(os.Stderr, files["error.log"]),
			ginInfo:  io.MultiWriter(levelWriter{min: Info, dst: os.Stdout}, files["gin_info.log"]),
			ginErr:   io.MultiWriter(levelWriter{min: Error, dst: os.Stderr}, files["gin_error.log"]),
			gormInfo: io.MultiWriter(levelWriter{min: Info, dst: os.Stdout}, files["gorm_info.log"]),
			gormErr:  io.MultiWriter(levelWriter{min: Error, dst: os.Stderr}, files["gorm_error.log"]),
		}
		sinkMu.Lock()
		cur = s
		sinkMu.Unlock()

		hookGin()
	})
}

// Close 关闭滚动文件，退出前调用
func Close() {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	for _, c := range closers {
		_ = c.Close()
	}
	closers = nil
	cur = consoleSinks()
	gin.DefaultWriter, gin.DefaultErrorWriter = os.Stdout, os.Stderr
}
