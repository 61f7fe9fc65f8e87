package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tripmesh/integrations/internal/integration/domain"
)

func (s *Server) HandleIntegrationWebhook(c *gin.Context) {
	id, ok := integrationID(c)
	if !ok {
		return
	}

	event := strings.TrimSpace(c.Param("event"))
	if event == "" {
		AbortWithError(c, domain.ErrInvalidRequest)
		return
	}

	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		AbortWithError(c, domain.ErrInvalidRequest)
		return
	}

	headers := make(map[string]string, len(c.Request.Header))
	for key, values := range c.Request.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	resp, err := s.svc.HandleWebhook(c.Request.Context(), id, event, payload, headers)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
