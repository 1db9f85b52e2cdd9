package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	sladomain "github.com/smallbiznis/printflow/internal/sla/domain"
)

func (s *Server) ListSLATimers(c *gin.Context) {
	resp, err := s.slaSvc.ListTimers(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CompleteSLATimer(c *gin.Context) {
	resp, err := s.slaSvc.CompleteTimer(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSLABreaches(c *gin.Context) {
	var req sladomain.ListBreachesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.slaSvc.ListBreaches(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
