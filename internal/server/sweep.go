package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type sweepRequest struct {
	Date string `json:"date"`
}

// RunSweep triggers the daily allowance sweep, optionally for an explicit
// date. Re-running for a date already swept skips the stamped clients.
func (s *Server) RunSweep(c *gin.Context) {
	var req sweepRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
	}

	date := s.clock.Now().UTC()
	if strings.TrimSpace(req.Date) != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		date = parsed
	}

	report, err := s.sweeper.RunDailySweep(c.Request.Context(), date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if !report.Succeeded() {
		status = http.StatusInternalServerError
	}
	c.JSON(status, report)
}
