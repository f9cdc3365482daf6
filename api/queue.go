package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/maestro_backend/consensus"
	"github.com/mmdatafocus/maestro_backend/models"
	"github.com/mmdatafocus/maestro_backend/models/reports"
	"github.com/mmdatafocus/maestro_backend/workflow"
)

func queueQuery(c *gin.Context) (workflow.QueueQuery, bool) {
	q := workflow.QueueQuery{
		Archive:           consensus.ParseArchiveFilter(c.Query("archivada")),
		Sku:               c.Query("sku"),
		OldCategory:       c.Query("old_category"),
		OldType:           c.Query("old_type"),
		OldClassification: c.Query("old_classification"),
		NewCategory:       c.Query("new_category"),
		NewType:           c.Query("new_type"),
		NewClassification: c.Query("new_classification"),
		DecidedBy:         c.Query("decided_by"),
		State:             consensus.QueueState(c.Query("state")),
	}
	switch q.State {
	case "", consensus.QueueStatePending, consensus.QueueStateApplied, consensus.QueueStateRejected:
		return q, true
	}
	badRequest(c, "state must be pending, applied or rejected")
	return q, false
}

func (h *Handler) queue() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := campaignParam(c)
		if !ok {
			return
		}
		q, ok := queueQuery(c)
		if !ok {
			return
		}
		rows, err := h.service.Queue(c.Request.Context(), id, q)
		if err != nil {
			h.writeError(c, "queue", id, err)
			return
		}
		c.JSON(http.StatusOK, paginate(c, rows))
	}
}

func (h *Handler) exportQueue() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := campaignParam(c)
		if !ok {
			return
		}
		format, err := reports.ParseFormat(c.Query("format"))
		if err != nil {
			h.writeError(c, "exportQueue", id, err)
			return
		}
		q, ok := queueQuery(c)
		if !ok {
			return
		}
		rows, err := h.service.Queue(c.Request.Context(), id, q)
		if err != nil {
			h.writeError(c, "exportQueue", id, err)
			return
		}
		table := reports.Table{Sheet: "queue", Columns: consensus.QueueColumns, Rows: consensus.QueueRows(rows)}
		h.sendTable(c, id, "queue", table, format)
	}
}

type batchRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

func (h *Handler) queueBatch(op models.QueueOp) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := campaignParam(c)
		if !ok {
			return
		}
		var req batchRequest
		if !bindJSON(c, &req) {
			return
		}
		ctx := c.Request.Context()
		decidedBy := currentSession(c).Email

		var (
			report workflow.BatchReport
			err    error
		)
		switch op {
		case models.QueueOpApply:
			report, err = h.service.ApplyBatch(ctx, id, req.IDs, decidedBy)
		case models.QueueOpReject:
			report, err = h.service.RejectBatch(ctx, id, req.IDs, decidedBy)
		case models.QueueOpArchive:
			report, err = h.service.Archive(ctx, id, req.IDs)
		default:
			report, err = h.service.Unarchive(ctx, id, req.IDs)
		}
		if err != nil {
			h.writeError(c, "queueBatch", req.IDs, err)
			return
		}
		if op == models.QueueOpApply && report.AppliedCount > 0 {
			reports.InvalidateReports(maestroReport)
		}
		c.JSON(http.StatusOK, report)
	}
}
