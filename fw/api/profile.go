package api

import (
	"net/http"
	"sfidfw/fw/core/firewall"

	"github.com/gin-gonic/gin"
)

func (s *Server) listProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"list":    s.App.Engine.Profiles(),
		"current": s.App.Engine.CurrentProfile(),
	})
}

func (s *Server) createProfile(c *gin.Context) {
	var in firewall.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, err := s.App.Engine.CreateProfile(c.Request.Context(), in)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// POST /api/firewall/profiles/:name/apply
func (s *Server) applyProfile(c *gin.Context) {
	if err := s.App.Engine.ApplyProfile(c.Request.Context(), c.Param("name")); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"current": s.App.Engine.CurrentProfile(),
		"rules":   s.App.Engine.AllRules(),
	})
}
