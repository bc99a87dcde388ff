package api

import (
	"errors"
	"net/http"
	"sfidfw/fw/core/firewall"
	"time"

	"github.com/gin-gonic/gin"
)

// writeErr 引擎错误 -> HTTP 状态码
func writeErr(c *gin.Context, err error) {
	var (
		ve *firewall.ValidationError
		fe *firewall.FormatError
		pe *firewall.PersistError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "violations": ve.Violations})
	case errors.As(err, &fe):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, firewall.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, firewall.ErrDuplicateProfile):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &pe):
		apiLog.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		apiLog.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func notFoundJSON(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "not found", "time": time.Now().UnixMilli()})
}
