package logx

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

var ginExclude = []string{
	"github.com/gin-gonic/gin", "/gin-gonic/gin",
	"/net/http", "runtime/", "/logx/",
}

// GinWriter 把 gin 的输出改写成统一格式
type GinWriter struct{}

func (GinWriter) Write(p []byte) (int, error) {
	info, errW := ginWriters()
	for _, ln := range bytes.Split(p, []byte{'\n'}) {
		ln = bytes.TrimSpace(ln)
		if len(ln) == 0 {
			continue
		}
		lvl, msg := ginDetect(string(ln))
		dst := info
		if lvl >= Error {
			dst = errW
		}
		writeLine(dst, lvl, findCaller(ginExclude, 1), "gin", msg)
	}
	return len(p), nil
}

func hookGin() {
	gin.DefaultWriter = GinWriter{}
	gin.DefaultErrorWriter = GinWriter{}

	gin.DebugPrintRouteFunc = func(method, path, handler string, nHandlers int) {
		info, _ := ginWriters()
		msg := fmt.Sprintf("%-6s %-36s --> %s (%d handlers)", method, path, handler, nHandlers)
		writeLine(info, Debug, findCaller(ginExclude, 1), "gin", msg)
	}
	gin.DebugPrintFunc = func(format string, values ...any) {
		lvl, msg := ginDetect(fmt.Sprintf(format, values...))
		info, errW := ginWriters()
		dst := info
		if lvl >= Error {
			dst = errW
		}
		writeLine(dst, lvl, findCaller(ginExclude, 1), "gin", strings.TrimSpace(msg))
	}
}

func ginDetect(s string) (Level, string) {
	switch {
	case strings.Contains(s, "[WARNING]") || strings.Contains(s, "[WARN]"):
		return Warn, stripGinPrefix(s)
	case strings.Contains(s, "[ERROR]"):
		return Error, stripGinPrefix(s)
	case strings.HasPrefix(s, "[GIN-debug]") || strings.Contains(s, "-->"):
		return Debug, stripGinPrefix(s)
	case strings.HasPrefix(strings.TrimSpace(s), "- "):
		return Info, strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "- "))
	}
	return Info, stripGinPrefix(s)
}

// 去掉 [GIN] / [GIN-debug] 以及紧随的 [WARNING] 之类的标签
func stripGinPrefix(s string) string {
	for i := 0; i < 2 && strings.HasPrefix(s, "["); i++ {
		j := strings.Index(s, "]")
		if j < 0 || j+1 >= len(s) {
			break
		}
		s = strings.TrimSpace(s[j+1:])
	}
	return s
}
