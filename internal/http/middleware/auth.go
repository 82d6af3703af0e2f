package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"bustravel/internal/domain"
	"bustravel/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const principalKey = "principal"

// Claims are issued by the identity provider.
type Claims struct {
	Roles     []string `json:"roles"`
	CompanyID string   `json:"company_id,omitempty"`
	jwt.RegisteredClaims
}

// Auth requires a valid HS256 bearer token and stores the principal in the
// gin context.
func Auth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			abortUnauthorized(c, "authorization token missing")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(strings.TrimSpace(parts[1]), claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !token.Valid || claims.Subject == "" {
			utils.LoggerFromContext(c.Request.Context()).WithError(err).Info("invalid bearer token")
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		p := domain.Principal{ID: claims.Subject, CompanyID: claims.CompanyID}
		for _, r := range claims.Roles {
			p.Roles = append(p.Roles, domain.Role(strings.ToLower(strings.TrimSpace(r))))
		}
		c.Set(principalKey, p)
		c.Request = c.Request.WithContext(utils.ContextWithLogger(c.Request.Context(),
			utils.LoggerFromContext(c.Request.Context()).WithField("principal_id", p.ID)))
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by Auth, or the zero principal.
func PrincipalFrom(c *gin.Context) domain.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(domain.Principal); ok {
			return p
		}
	}
	return domain.Principal{}
}

// WebhookSecret guards gateway callbacks with a shared secret header.
func WebhookSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("X-Webhook-Secret")
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			abortUnauthorized(c, "invalid webhook secret")
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":      msg,
		"code":       "unauthorized",
		"request_id": GetRequestID(c),
	})
}
