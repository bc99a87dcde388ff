package common

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// IsDesktop Win/macOS 视为开发机：日志、数据库放在工作目录下
func IsDesktop() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}

// GetPage ?page=&size=，size 超出 (0,200] 时回落到 20
func GetPage(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.DefaultQuery("size", "20"))
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 20
	}
	return
}

// ReadPEMorFile 含 "-----BEGIN " 视为 PEM 内容，否则按路径读取
func ReadPEMorFile(s string) ([]byte, error) {
	if strings.Contains(s, "-----BEGIN ") {
		return []byte(s), nil
	}
	return os.ReadFile(filepath.Clean(s))
}

// SplitList 逗号分隔，去空白、小写；空串返回 nil
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MatchHost 支持 "*.example.com" 前缀通配，其余精确匹配（忽略大小写）
func MatchHost(host string, patterns []string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	for _, pat := range patterns {
		pat = strings.ToLower(strings.TrimSpace(pat))
		switch {
		case pat == "":
		case strings.HasPrefix(pat, "*."):
			suffix := pat[2:]
			if host == suffix || strings.HasSuffix(host, "."+suffix) {
				return true
			}
		case host == pat:
			return true
		}
	}
	return false
}

// EnsureDirForFileDSN sqlite 的 file: DSN 需要目录已存在
func EnsureDirForFileDSN(dsn string) error {
	if !strings.HasPrefix(dsn, "file:") {
		return nil
	}
	p := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" || strings.HasPrefix(p, ":memory:") {
		return nil
	}
	return os.MkdirAll(filepath.Dir(p), 0o755)
}
