package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/maestro_backend/models"
)

func (h *Handler) history() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := campaignParam(c)
		if !ok {
			return
		}
		rows, err := h.store.ListHistory(c.Request.Context(), id, intQuery(c, "limit", 100))
		if err != nil {
			h.writeError(c, "history", id, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func (h *Handler) outboxStats() gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := h.store.OutboxStats(c.Request.Context())
		if err != nil {
			h.writeError(c, "outboxStats", nil, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func (h *Handler) requeueOutbox() gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := h.store.RequeueDeadOutbox(c.Request.Context())
		if err != nil {
			h.writeError(c, "requeueOutbox", nil, err)
			return
		}
		h.logger.WithField("count", n).Info("dead outbox rows requeued")
		c.JSON(http.StatusOK, gin.H{"requeued": n})
	}
}

func (h *Handler) listUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := h.store.ListUsers(c.Request.Context())
		if err != nil {
			h.writeError(c, "listUsers", nil, err)
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

func (h *Handler) createUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewUser
		if !bindJSON(c, &input) {
			return
		}
		user, err := h.store.CreateUser(c.Request.Context(), &input)
		if err != nil {
			h.writeError(c, "createUser", input.Email, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}
