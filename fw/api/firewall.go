package api

import (
	"net/http"
	"net/netip"
	"sfidfw/fw/core/firewall"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

/******** DTO ********/

type enabledReq struct {
	Enabled *bool `json:"enabled"`
}

type blockIPReq struct {
	IP   string `json:"ip"`
	Name string `json:"name"`
}

/******** helpers ********/

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

func bindEnabled(c *gin.Context) (bool, bool) {
	var req enabledReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		badRequest(c, "body must be {\"enabled\": true|false}")
		return false, false
	}
	return *req.Enabled, true
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

/******** 概览 / 开关 ********/

// GET /api/firewall
func (s *Server) info(c *gin.Context) {
	c.JSON(http.StatusOK, s.App.Engine.Info())
}

// PUT /api/firewall/enabled
func (s *Server) setEnabled(c *gin.Context) {
	on, ok := bindEnabled(c)
	if !ok {
		return
	}
	s.App.Engine.SetEnabled(on)
	c.JSON(http.StatusOK, s.App.Engine.Info())
}

/******** 规则 ********/

// GET /api/firewall/rules[?active=1]
func (s *Server) listRules(c *gin.Context) {
	var list []firewall.Rule
	if truthy(c.Query("active")) {
		list = s.App.Engine.ActiveRules()
	} else {
		list = s.App.Engine.AllRules()
	}
	c.JSON(http.StatusOK, gin.H{"list": list, "total": len(list)})
}

func (s *Server) getRule(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	r, err := s.App.Engine.RuleByID(id)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) createRule(c *gin.Context) {
	var in firewall.RuleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	r, err := s.App.Engine.AddRule(c.Request.Context(), in)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// POST /api/firewall/rules/validate：只校验，不落库
func (s *Server) validateRule(c *gin.Context) {
	var in firewall.RuleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	v := firewall.ValidateRule(in)
	if v == nil {
		v = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"valid": len(v) == 0, "violations": v})
}

func (s *Server) updateRule(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var patch firewall.RulePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err.Error())
		return
	}
	r, err := s.App.Engine.EditRule(c.Request.Context(), id, patch)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) deleteRule(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := s.App.Engine.DeleteRule(c.Request.Context(), id); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) toggleRule(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	on, ok := bindEnabled(c)
	if !ok {
		return
	}
	r, err := s.App.Engine.ToggleRule(c.Request.Context(), id, on)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

/******** IP 封禁 ********/

func (s *Server) listBlocked(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"list": s.App.Engine.BlockedIPs()})
}

func (s *Server) blockIP(c *gin.Context) {
	var req blockIPReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	r, err := s.App.Engine.BlockIP(c.Request.Context(), req.IP, req.Name)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (s *Server) unblockIP(c *gin.Context) {
	n, err := s.App.Engine.UnblockIP(c.Request.Context(), c.Param("ip"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": n})
}

/******** 评估 ********/

func checkPacket(p firewall.Packet) string {
	switch p.Direction {
	case firewall.DirectionInbound, firewall.DirectionOutbound:
	default:
		return "direction must be inbound or outbound"
	}
	switch p.Protocol {
	case firewall.ProtocolTCP, firewall.ProtocolUDP, firewall.ProtocolICMP:
	default:
		return "protocol must be tcp, udp or icmp"
	}
	if p.Port < 0 || p.Port > 65535 {
		return "port out of range"
	}
	for _, a := range []string{p.Source, p.Destination} {
		if _, err := netip.ParseAddr(a); err != nil {
			return "source and destination must be IP addresses"
		}
	}
	return ""
}

// POST /api/firewall/evaluate
func (s *Server) evaluate(c *gin.Context) {
	if !s.evalLimiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}
	var p firewall.Packet
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err.Error())
		return
	}
	p.Direction = firewall.Direction(strings.ToLower(string(p.Direction)))
	p.Protocol = firewall.Protocol(strings.ToLower(string(p.Protocol)))
	if msg := checkPacket(p); msg != "" {
		badRequest(c, msg)
		return
	}
	c.JSON(http.StatusOK, s.App.Engine.Evaluate(c.Request.Context(), p))
}

/******** 日志 / 统计 ********/

// GET /api/firewall/logs?limit=50
func (s *Server) listLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	list := s.App.Engine.Logs(limit)
	c.JSON(http.StatusOK, gin.H{"list": list, "total": len(list)})
}

func (s *Server) clearLogs(c *gin.Context) {
	if err := s.App.Engine.ClearLogs(c.Request.Context()); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.App.Engine.Statistics())
}

func (s *Server) resetStats(c *gin.Context) {
	s.App.Engine.ResetStatistics()
	c.JSON(http.StatusOK, s.App.Engine.Statistics())
}
