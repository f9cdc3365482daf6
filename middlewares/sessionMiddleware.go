package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/maestro_backend/config"
	"github.com/mmdatafocus/maestro_backend/session"
	"github.com/mmdatafocus/maestro_backend/utils"
)

const sessionKey = "session"

// SessionMiddleware resolves the caller from "Authorization: Bearer <jwt>"
// or, for scripts, the raw session token in the "token" header. Requests
// without either pass through anonymous.
func SessionMiddleware(sessions *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := sessionToken(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if token == "" {
			c.Next()
			return
		}

		sess, err := sessions.Get(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, session.ErrSessionNotFound) {
				config.LogError(config.GetLogger(), "middlewares", "SessionMiddleware", "load session", nil, err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(sessionKey, sess)
		c.Request = c.Request.WithContext(withSession(c.Request.Context(), sess))
		c.Next()
	}
}

func sessionToken(r *http.Request) (string, error) {
	if auth := strings.TrimSpace(r.Header.Get("Authorization")); auth != "" {
		const bearer = "Bearer "
		if len(auth) <= len(bearer) || !strings.EqualFold(auth[:len(bearer)], bearer) {
			return "", utils.ErrorUnauthorized
		}
		claims, err := utils.JwtValidate(strings.TrimSpace(auth[len(bearer):]))
		if err != nil {
			return "", err
		}
		return claims.SessionID(), nil
	}
	return strings.TrimSpace(r.Header.Get("token")), nil
}

func withSession(ctx context.Context, sess *session.Session) context.Context {
	ctx = utils.SetUsernameInContext(ctx, sess.Email)
	return utils.SetBranchInContext(ctx, sess.Branch)
}

// CurrentSession returns the session SessionMiddleware attached.
func CurrentSession(c *gin.Context) (*session.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*session.Session)
	return sess, ok && sess != nil
}
