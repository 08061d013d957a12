package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/scailup/creditcore/internal/clientctx"
)

const maxLeadPageSize = 200

type convertRequest struct {
	LeadID string `json:"lead_id" binding:"required"`
	Notes  string `json:"notes"`
}

type convertBulkRequest struct {
	LeadIDs []string `json:"lead_ids" binding:"required,min=1"`
	Notes   string   `json:"notes"`
}

func (s *Server) ListLeads(c *gin.Context) {
	clientID, ok := clientctx.ClientID(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		limit = min(parsed, maxLeadPageSize)
	}

	leads, err := s.conversionSvc.ListLeads(c.Request.Context(), clientID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": leads})
}

func (s *Server) ConvertContact(c *gin.Context) {
	clientID, ok := clientctx.ClientID(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req convertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	leadID, err := parseID(req.LeadID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.conversionSvc.Convert(c.Request.Context(), clientID, leadID, req.Notes)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if result.AlreadyConverted {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

func (s *Server) ConvertContactsBulk(c *gin.Context) {
	clientID, ok := clientctx.ClientID(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req convertBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	ids, err := parseIDs(req.LeadIDs)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.conversionSvc.ConvertBulk(c.Request.Context(), clientID, ids, req.Notes)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
