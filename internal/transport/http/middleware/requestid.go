package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/srivastavahk/TaskFlow/internal/requestid"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags the request context and response with an ID. A well-formed
// incoming X-Request-ID is kept; anything else is replaced by a fresh UUID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if !requestid.Acceptable(id) {
			id = requestid.New()
		}

		c.Request = c.Request.WithContext(requestid.WithRequestID(c.Request.Context(), id))
		c.Header(requestIDHeader, id)
		c.Next()
	}
}
