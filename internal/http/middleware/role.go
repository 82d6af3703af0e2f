package middleware

import (
	"net/http"

	"bustravel/internal/domain"

	"github.com/gin-gonic/gin"
)

// RequireRoles is route-level role-based access control. It runs after Auth
// and lets the request through when the principal holds any of roles.
// Ownership checks stay in the services.
//
//	trips.POST("", RequireRoles(domain.RoleOperator), handler)
func RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := PrincipalFrom(c)
		if p.ID == "" {
			abortUnauthorized(c, "principal missing from context")
			return
		}
		if domain.RequireRole(p, roles...) != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":      "not authorized",
				"code":       "not_authorized",
				"request_id": GetRequestID(c),
			})
			return
		}
		c.Next()
	}
}
