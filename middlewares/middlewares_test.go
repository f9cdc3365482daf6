package middlewares_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/maestro_backend/middlewares"
	"github.com/mmdatafocus/maestro_backend/session"
	"github.com/mmdatafocus/maestro_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(sessions *session.Store, handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middlewares.SessionMiddleware(sessions))
	handlers = append(handlers, func(c *gin.Context) {
		branch, _ := utils.GetBranchFromContext(c.Request.Context())
		c.String(http.StatusOK, branch)
	})
	r.GET("/", handlers...)
	return r
}

func serve(r http.Handler, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSessionMiddleware(t *testing.T) {
	sessions := session.NewStore(session.NewMemoryKV(), time.Hour)
	sess, err := sessions.Create(context.Background(), session.Session{UserID: 1, Email: "ana@example.com", Role: session.RoleEmployee, Branch: "North"})
	require.NoError(t, err)
	jwt, _, err := utils.JwtGenerate(sess.Token, 1, sess.Email, sess.Role, sess.Branch, time.Hour)
	require.NoError(t, err)

	r := newRouter(sessions, middlewares.RequireSession())

	w := serve(r, "Authorization", "Bearer "+jwt)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "North", w.Body.String())

	w = serve(r, "token", sess.Token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, "Authorization", "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	require.NoError(t, sessions.Remove(context.Background(), sess.Token))
	w = serve(r, "Authorization", "Bearer "+jwt)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	sessions := session.NewStore(session.NewMemoryKV(), time.Hour)
	ctx := context.Background()
	employee, err := sessions.Create(ctx, session.Session{Email: "e@example.com", Role: session.RoleEmployee})
	require.NoError(t, err)
	admin, err := sessions.Create(ctx, session.Session{Email: "a@example.com", Role: session.RoleAdmin})
	require.NoError(t, err)

	r := newRouter(sessions, middlewares.RequireAdmin())
	assert.Equal(t, http.StatusForbidden, serve(r, "token", employee.Token).Code)
	assert.Equal(t, http.StatusOK, serve(r, "token", admin.Token).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "", "").Code)
}

func TestRateLimiterLocalFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middlewares.NewRateLimiter(2, time.Minute).Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, "", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, "", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, "", "").Code)
}
