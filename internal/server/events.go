package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	eventdomain "github.com/smallbiznis/printflow/internal/events/domain"
)

// ListEvents is the lifecycle feed clients read instead of polling each entity.
func (s *Server) ListEvents(c *gin.Context) {
	var req eventdomain.ListEventsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.eventSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
