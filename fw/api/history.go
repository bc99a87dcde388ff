package api

import (
	"net/http"
	"sfidfw/fw/common"
	"sfidfw/fw/common/ttime"
	"sfidfw/fw/db"
	"sfidfw/fw/db/dao"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) historyEnabled(c *gin.Context) bool {
	if s.App.LogDB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event history disabled"})
		return false
	}
	return true
}

// GET /api/firewall/history?day=YYYYMMDD&action=&source=&rule_id=&page=&size=
func (s *Server) listHistory(c *gin.Context) {
	if !s.historyEnabled(c) {
		return
	}
	day := strings.TrimSpace(c.Query("day"))
	if day == "" {
		day = ttime.Day(time.Now())
	} else {
		t, err := ttime.ParseDay(day)
		if err != nil {
			badRequest(c, "day must be YYYYMMDD")
			return
		}
		day = ttime.Day(t)
	}

	f := dao.EventFilter{
		Action: c.Query("action"),
		Source: c.Query("source"),
	}
	if v := strings.TrimSpace(c.Query("rule_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(c, "rule_id must be int")
			return
		}
		f.RuleID = id
	}

	page, size := common.GetPage(c)
	list, total, err := dao.QueryEvents(c.Request.Context(), s.App.LogDB.GormDataSource, day, f, page, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list, "total": total, "page": page, "size": size, "day": day})
}

// GET /api/firewall/history/days
func (s *Server) listHistoryDays(c *gin.Context) {
	if !s.historyEnabled(c) {
		return
	}
	days, err := db.EventDays(s.App.LogDB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": days})
}
