package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/maestro_backend/models/reports"
)

// sendTable streams the rendered table as an attachment, or hands back a
// signed link when an export sink is configured.
func (h *Handler) sendTable(c *gin.Context, campaignId int, name string, table reports.Table, format reports.Format) {
	data, err := table.Render(format)
	if err != nil {
		h.writeError(c, "sendTable", name, err)
		return
	}
	if h.exports != nil {
		link, err := h.exports(c.Request.Context(), campaignId, name, format, data)
		if err != nil {
			h.writeError(c, "sendTable", name, err)
			return
		}
		c.JSON(http.StatusOK, link)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+reports.Filename(name, format)+`"`)
	c.Data(http.StatusOK, format.ContentType(), data)
}
