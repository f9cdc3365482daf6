package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/maestro_backend/models"
	"github.com/mmdatafocus/maestro_backend/utils"
)

func (h *Handler) createScan() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := campaignParam(c)
		if !ok {
			return
		}
		var input models.NewScanSubmission
		if !bindJSON(c, &input) {
			return
		}
		ctx := c.Request.Context()
		email, _ := utils.GetUsernameFromContext(ctx)
		branch, _ := utils.GetBranchFromContext(ctx)
		sub, err := h.store.CreateScanSubmission(ctx, id, &input, email, branch)
		if err != nil {
			h.writeError(c, "createScan", input, err)
			return
		}
		c.JSON(http.StatusCreated, sub)
	}
}

func (h *Handler) myScans() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := campaignParam(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		email, _ := utils.GetUsernameFromContext(ctx)
		rows, err := h.store.ListUserSubmissions(ctx, id, email)
		if err != nil {
			h.writeError(c, "myScans", id, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}
