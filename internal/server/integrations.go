package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tripmesh/integrations/internal/integration/domain"
)

func integrationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		AbortWithError(c, domain.ErrInvalidRequest)
		return 0, false
	}
	return id, true
}

type createIntegrationRequest struct {
	Name   string              `json:"name"`
	Type   domain.Type         `json:"type"`
	Config *domain.ConfigPatch `json:"configuration,omitempty"`
}

func (s *Server) CreateIntegration(c *gin.Context) {
	var req createIntegrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, domain.ErrInvalidRequest)
		return
	}

	resp, err := s.svc.Create(c.Request.Context(), domain.CreateRequest{
		OwnerID: ownerFrom(c),
		Name:    strings.TrimSpace(req.Name),
		Type:    req.Type,
		Config:  req.Config,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListIntegrations(c *gin.Context) {
	resp, err := s.svc.List(c.Request.Context(), ownerFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetIntegrationByID(c *gin.Context) {
	id, ok := integrationID(c)
	if !ok {
		return
	}

	resp, err := s.svc.Get(c.Request.Context(), id, ownerFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ConfigureIntegration(c *gin.Context) {
	id, ok := integrationID(c)
	if !ok {
		return
	}

	var patch domain.ConfigPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		AbortWithError(c, domain.ErrInvalidRequest)
		return
	}

	resp, err := s.svc.Configure(c.Request.Context(), id, patch)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteIntegration(c *gin.Context) {
	id, ok := integrationID(c)
	if !ok {
		return
	}

	if err := s.svc.Delete(c.Request.Context(), id, ownerFrom(c)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) TestIntegration(c *gin.Context) {
	id, ok := integrationID(c)
	if !ok {
		return
	}

	resp, err := s.svc.TestConnection(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type toggleIntegrationRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) ToggleIntegration(c *gin.Context) {
	id, ok := integrationID(c)
	if !ok {
		return
	}

	var req toggleIntegrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, domain.ErrInvalidRequest)
		return
	}

	resp, err := s.svc.Toggle(c.Request.Context(), id, ownerFrom(c), req.Enabled)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type syncIntegrationRequest struct {
	DataType  string           `json:"dataType,omitempty"`
	Direction domain.Direction `json:"direction,omitempty"`
}

func (s *Server) SyncIntegration(c *gin.Context) {
	id, ok := integrationID(c)
	if !ok {
		return
	}

	var req syncIntegrationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, domain.ErrInvalidRequest)
			return
		}
	}

	resp, err := s.svc.SyncData(c.Request.Context(), domain.SyncRequest{
		ID:        id,
		DataType:  strings.TrimSpace(req.DataType),
		Direction: req.Direction,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type sendDataRequest struct {
	Endpoint string         `json:"endpoint,omitempty"`
	Payload  map[string]any `json:"payload"`
}

func (s *Server) SendIntegrationData(c *gin.Context) {
	id, ok := integrationID(c)
	if !ok {
		return
	}

	var req sendDataRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Payload) == 0 {
		AbortWithError(c, domain.ErrInvalidRequest)
		return
	}

	resp, err := s.svc.SendData(c.Request.Context(), id, req.Payload, strings.TrimSpace(req.Endpoint))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ReceiveIntegrationData(c *gin.Context) {
	id, ok := integrationID(c)
	if !ok {
		return
	}

	endpoint := strings.TrimSpace(c.Query("endpoint"))
	params := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if key == "endpoint" || key == "owner_id" || len(values) == 0 {
			continue
		}
		params[key] = values[0]
	}

	resp, err := s.svc.ReceiveData(c.Request.Context(), id, endpoint, params)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetIntegrationAnalytics(c *gin.Context) {
	id, ok := integrationID(c)
	if !ok {
		return
	}

	resp, err := s.svc.Analytics(c.Request.Context(), id, ownerFrom(c), strings.TrimSpace(c.Query("period")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
