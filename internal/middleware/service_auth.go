package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pushline/push-api/pkg/auth"
)

const ContextServiceSubject = "service_subject"

// ServiceAuth protects internal endpoints (cron-triggered scheduling) with a
// machine credential. This is not end-user authentication, which lives
// entirely outside the engine.
type ServiceAuth struct {
	tokens auth.ServiceTokenService
}

func NewServiceAuth(tokens auth.ServiceTokenService) *ServiceAuth {
	return &ServiceAuth{tokens: tokens}
}

func (a *ServiceAuth) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing service credential",
			})
			return
		}

		subject, err := a.tokens.Validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid service credential",
			})
			return
		}

		c.Set(ContextServiceSubject, subject)
		c.Next()
	}
}
