package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tieubaoca/docrag-be/types"
)

// APIKeyAuth rejects requests whose X-API-Key header does not match the
// configured key. An empty configured key disables the check.
func APIKeyAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}
		if c.GetHeader("X-API-Key") != apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.DataResponse{
				Status:  "error",
				Message: "invalid API key",
			})
			return
		}
		c.Next()
	}
}
