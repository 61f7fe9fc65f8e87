package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const ownerContextKey = "owner_id"

// OwnerRequired resolves the calling account from the X-Owner-ID header,
// falling back to the owner_id query parameter.
func (s *Server) OwnerRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("X-Owner-ID"))
		if raw == "" {
			raw = strings.TrimSpace(c.Query("owner_id"))
		}
		ownerID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ownerID <= 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Set(ownerContextKey, ownerID)
		c.Next()
	}
}

func ownerFrom(c *gin.Context) int64 {
	return c.GetInt64(ownerContextKey)
}
