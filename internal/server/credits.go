package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/scailup/creditcore/internal/clientctx"
	creditdomain "github.com/scailup/creditcore/internal/credit/domain"
)

func (s *Server) GetCreditBalance(c *gin.Context) {
	clientID, ok := clientctx.ClientID(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	module := creditdomain.Module(strings.TrimSpace(c.Query("module")))
	creditType := creditdomain.CreditType(strings.TrimSpace(c.Query("credit_type")))
	if module == "" || creditType == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	summary, err := s.creditSvc.Balance(c.Request.Context(), clientID, module, creditType)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

type grantRequest struct {
	ClientID   string `json:"client_id" binding:"required"`
	Module     string `json:"module" binding:"required"`
	CreditType string `json:"credit_type" binding:"required"`
	Amount     int64  `json:"amount" binding:"required"`
	ExpiresAt  string `json:"expires_at"`
}

func (s *Server) GrantCredits(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	clientID, err := parseID(req.ClientID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	client, err := s.clientRepo.FindByID(c.Request.Context(), clientID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if client == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	expiresAt := s.clock.Now().UTC().AddDate(0, 1, 0)
	if strings.TrimSpace(req.ExpiresAt) != "" {
		expiresAt, err = time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
	}

	err = s.creditSvc.Grant(c.Request.Context(), creditdomain.GrantRequest{
		ClientID:   clientID,
		Module:     creditdomain.Module(req.Module),
		CreditType: creditdomain.CreditType(req.CreditType),
		Amount:     req.Amount,
		Reason:     creditdomain.ReasonAdminGrant,
		ExpiresAt:  expiresAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "granted"})
}
