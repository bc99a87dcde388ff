package api

import (
	"io"
	"net/http"
	"sfidfw/fw/core/firewall"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const maxImportBytes = 4 << 20

// GET /api/firewall/export：以附件形式下载
func (s *Server) exportRules(c *gin.Context) {
	b, err := s.App.Engine.ExportJSON()
	if err != nil {
		writeErr(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+firewall.ExportFileName(time.Now())+`"`)
	c.Data(http.StatusOK, "application/json; charset=utf-8", b)
}

// POST /api/firewall/import：JSON 请求体，或 multipart 字段 file
func (s *Server) importRules(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)

	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, ferr := c.FormFile("file")
		if ferr != nil {
			badRequest(c, "missing file field")
			return
		}
		f, ferr := fh.Open()
		if ferr != nil {
			badRequest(c, ferr.Error())
			return
		}
		defer f.Close()
		data, err = io.ReadAll(f)
	} else {
		data, err = c.GetRawData()
	}
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	n, err := s.App.Engine.ImportRules(c.Request.Context(), data)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": n})
}
