package server

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/scailup/creditcore/internal/clientctx"
)

// ResolveClient reads the tenant identity from the X-Client-Id header and
// puts it on the request context. Everything below the handlers trusts the
// context, never the raw header.
func (s *Server) ResolveClient() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("X-Client-Id"))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		id, err := parseID(raw)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		client, err := s.clientRepo.FindByID(c.Request.Context(), id)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if client == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := clientctx.WithClientID(c.Request.Context(), client.ID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func parseID(raw string) (snowflake.ID, error) {
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return snowflake.ID(value), nil
}

func parseIDs(raw []string) ([]snowflake.ID, error) {
	ids := make([]snowflake.ID, 0, len(raw))
	for _, value := range raw {
		id, err := parseID(strings.TrimSpace(value))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
