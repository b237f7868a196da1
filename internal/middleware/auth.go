package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/health-enrollment/pkg/auth"
	"github.com/jwalitptl/health-enrollment/pkg/errors"
	"github.com/jwalitptl/health-enrollment/pkg/httputil"
)

const ContextSubject = "subject"

type AuthMiddleware struct {
	tokens auth.JWTService
}

func NewAuthMiddleware(tokens auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate verifies the bearer token and stores its subject in the context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithError(c, errors.Unauthorized(nil))
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			httputil.RespondWithError(c, errors.Unauthorized(nil))
			return
		}

		claims, err := m.tokens.Validate(token)
		if err != nil {
			log.Ctx(c.Request.Context()).Debug().Err(err).Msg("rejected bearer token")
			httputil.RespondWithError(c, errors.Unauthorized(err))
			return
		}

		c.Set(ContextSubject, claims.Subject)
		c.Next()
	}
}
