package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"inkpost-api/models"
	"inkpost-api/services"
	"inkpost-api/utils"
)

const (
	SessionKey = "session"
	UserIDKey  = "user_id"
)

// Authenticator resolves a raw bearer token into a session.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*services.Session, error)
}

// Auth requires a valid bearer token and stores the resolved session on the context.
func Auth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
			utils.SendAppError(c, models.NewUnauthenticatedError("Unauthenticated."))
			return
		}

		session, err := auth.Authenticate(c.Request.Context(), strings.TrimSpace(header[7:]))
		if err != nil {
			utils.SendAppError(c, err)
			return
		}

		c.Set(SessionKey, *session)
		c.Set(UserIDKey, session.UserID)
		c.Next()
	}
}

// SessionFrom returns the session stored by Auth.
func SessionFrom(c *gin.Context) (services.Session, bool) {
	v, ok := c.Get(SessionKey)
	if !ok {
		return services.Session{}, false
	}
	session, ok := v.(services.Session)
	return session, ok
}
