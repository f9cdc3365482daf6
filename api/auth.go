package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/maestro_backend/models"
	"github.com/mmdatafocus/maestro_backend/session"
	"github.com/mmdatafocus/maestro_backend/utils"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

func (h *Handler) login() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if !bindJSON(c, &req) {
			return
		}
		ctx := c.Request.Context()
		user, err := h.store.Authenticate(ctx, req.Email, req.Password)
		if err != nil {
			h.writeError(c, "login", req.Email, err)
			return
		}
		sess, err := h.sessions.Create(ctx, session.Session{
			UserID: user.ID,
			Email:  user.Email,
			Name:   user.Name,
			Role:   string(user.Role),
			Branch: user.Branch,
		})
		if err != nil {
			h.writeError(c, "login", user.Email, err)
			return
		}
		token, expiresAt, err := utils.JwtGenerate(sess.Token, user.ID, user.Email, string(user.Role), user.Branch, h.sessions.TTL())
		if err != nil {
			h.writeError(c, "login", user.Email, err)
			return
		}
		h.logger.WithField("user", user.Email).Info("login")
		c.JSON(http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt, User: user})
	}
}

func (h *Handler) logout() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := currentSession(c)
		if err := h.sessions.Remove(c.Request.Context(), sess.Token); err != nil {
			h.writeError(c, "logout", sess.Email, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *Handler) me() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := currentSession(c)
		user, err := h.store.GetUser(c.Request.Context(), sess.UserID)
		if err != nil {
			h.writeError(c, "me", sess.UserID, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user, "expires_at": sess.ExpiresAt})
	}
}
