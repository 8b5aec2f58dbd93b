package server

import (
	"errors"
	"net/http"
	"strings"

	grocerydomain "github.com/diyak0413/garden-state-grocery-gap-yay/internal/grocery/domain"
	quotadomain "github.com/diyak0413/garden-state-grocery-gap-yay/internal/quota/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) GetBasket(c *gin.Context) {
	region := strings.TrimSpace(c.Param("region"))
	if region == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "region is required"})
		return
	}

	result, err := s.grocerysvc.Resolve(c.Request.Context(), region)
	if err != nil {
		s.log.Error("basket resolution failed", zap.String("region", region), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "basket resolution failed"})
		return
	}

	respondData(c, result)
}

type refreshRequest struct {
	Regions []string `json:"regions" binding:"required,min=1"`
}

func (s *Server) RefreshCache(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "regions list is required"})
		return
	}

	summary, err := s.grocerysvc.Refresh(c.Request.Context(), req.Regions)
	if err != nil {
		switch {
		case errors.Is(err, quotadomain.ErrQuotaInsufficient):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, grocerydomain.ErrPipelineDisabled):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pricing pipeline is disabled"})
		default:
			s.log.Error("batch refresh failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "batch refresh failed"})
		}
		return
	}

	respondData(c, summary)
}

func (s *Server) GetStatus(c *gin.Context) {
	status, err := s.grocerysvc.Status(c.Request.Context())
	if err != nil {
		s.log.Error("status read failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "status read failed"})
		return
	}

	respondData(c, status)
}
