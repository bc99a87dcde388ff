package api

import (
	"sfidfw/fw/common/logx"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var apiLog = logx.New(logx.WithPrefix("api"))

/********** Router **********/
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	// 中间件：Recovery + 日志（输出已由 logx 接管）+ CORS
	r.Use(gin.Recovery(), gin.Logger(), corsMiddleware(s.App.Cfg.Server.CORSOrigins))

	api := r.Group("/api")
	{
		api.GET("/system", s.systemInfo)
		api.GET("/ws", s.App.Hub.Handle)
	}

	fw := api.Group("/firewall")
	{
		fw.GET("", s.info)
		fw.PUT("/enabled", s.setEnabled)

		fw.GET("/rules", s.listRules)
		fw.GET("/rules/:id", s.getRule)
		fw.POST("/rules", s.createRule)
		fw.POST("/rules/validate", s.validateRule)
		fw.PUT("/rules/:id", s.updateRule)
		fw.DELETE("/rules/:id", s.deleteRule)
		fw.PUT("/rules/:id/enabled", s.toggleRule)

		fw.GET("/profiles", s.listProfiles)
		fw.POST("/profiles", s.createProfile)
		fw.POST("/profiles/:name/apply", s.applyProfile)

		fw.GET("/blocked", s.listBlocked)
		fw.POST("/blocked", s.blockIP)
		fw.DELETE("/blocked/:ip", s.unblockIP)

		fw.POST("/evaluate", s.evaluate)

		fw.GET("/logs", s.listLogs)
		fw.DELETE("/logs", s.clearLogs)
		fw.GET("/stats", s.stats)
		fw.DELETE("/stats", s.resetStats)

		fw.GET("/export", s.exportRules)
		fw.POST("/import", s.importRules)

		fw.GET("/history", s.listHistory)
		fw.GET("/history/days", s.listHistoryDays)
	}

	// 未匹配的路径统一返回 JSON 404
	r.NoRoute(notFoundJSON)
	return r
}

// 未配置来源时放行所有来源（无凭证）
func corsMiddleware(origins []string) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	all := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			all = true
		}
	}
	if all {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
		c.AllowCredentials = true
	}
	return cors.New(c)
}
