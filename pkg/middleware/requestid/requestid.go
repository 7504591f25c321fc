package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header carries the request ID across service boundaries.
const Header = "X-Request-ID"

const contextKey = "request_id"

// Middleware tags every request with an ID, reusing the caller's
// X-Request-ID header when one is supplied.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(contextKey, id)
		c.Writer.Header().Set(Header, id)

		c.Next()
	}
}

// Value returns the ID assigned by Middleware, or "" outside of it.
func Value(c *gin.Context) string {
	return c.GetString(contextKey)
}
