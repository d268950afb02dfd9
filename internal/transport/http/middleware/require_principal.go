package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/srivastavahk/TaskFlow/internal/principal"
	"github.com/srivastavahk/TaskFlow/internal/transport/http/response"
)

const errAuthRequired = "Full authentication is required"

// RequirePrincipal runs after Authenticate. Routes listed in public (gin
// route patterns) pass through; every other matched route needs a
// Principal. The 401 body is the same whatever the token's defect was.
func RequirePrincipal(public ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(public))
	for _, p := range public {
		allowed[p] = struct{}{}
	}

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			// unmatched; let NoRoute answer 404
			c.Next()
			return
		}
		if _, ok := allowed[route]; ok {
			c.Next()
			return
		}
		if _, ok := principal.FromContext(c.Request.Context()); !ok {
			response.Err(c, http.StatusUnauthorized, errAuthRequired)
			return
		}
		c.Next()
	}
}
