package common

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestGetPage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		query      string
		page, size int
	}{
		{"", 1, 20},
		{"?page=3&size=50", 3, 50},
		{"?page=-1&size=1000", 1, 20},
		{"?page=x&size=0", 1, 20},
	}
	for _, c := range cases {
		ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
		ctx.Request = httptest.NewRequest("GET", "/"+c.query, nil)
		page, size := GetPage(ctx)
		if page != c.page || size != c.size {
			t.Errorf("%q: expected %d/%d, got %d/%d", c.query, c.page, c.size, page, size)
		}
	}
}

func TestMatchHost(t *testing.T) {
	pats := SplitList(" *.Example.com, api.test ,")
	if len(pats) != 2 {
		t.Fatalf("expected 2 patterns, got %v", pats)
	}
	for host, want := range map[string]bool{
		"example.com":     true,
		"a.b.example.com": true,
		"API.test":        true,
		"other.test":      false,
		"badexample.com":  false,
	} {
		if got := MatchHost(host, pats); got != want {
			t.Errorf("MatchHost(%q): expected %v, got %v", host, want, got)
		}
	}
}

func TestEnsureDirForFileDSN(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "lib")
	if err := EnsureDirForFileDSN("file:" + filepath.ToSlash(filepath.Join(dir, "master.db")) + "?_pragma=busy_timeout(5000)"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		t.Errorf("expected directory %s to exist", dir)
	}
	if err := EnsureDirForFileDSN("file::memory:?cache=shared"); err != nil {
		t.Errorf("expected memory dsn to be ignored, got %v", err)
	}
}
