package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/maestro_backend/consensus"
	"github.com/mmdatafocus/maestro_backend/models/reports"
	"github.com/mmdatafocus/maestro_backend/workflow"
)

const (
	viewMaster   = "master"
	viewBranches = "branches"
)

func discrepancyParams(c *gin.Context) (string, workflow.DiscrepancyQuery, bool) {
	view := strings.ToLower(strings.TrimSpace(c.DefaultQuery("view", viewMaster)))
	if view != viewMaster && view != viewBranches {
		badRequest(c, "view must be master or branches")
		return "", workflow.DiscrepancyQuery{}, false
	}
	only, ok := boolQuery(c, "only_conflicts")
	if !ok {
		return "", workflow.DiscrepancyQuery{}, false
	}
	q := workflow.DiscrepancyQuery{
		Sku:           c.Query("sku"),
		Branch:        c.Query("branch"),
		OnlyConflicts: only != nil && *only,
	}
	return view, q, true
}

func (h *Handler) discrepancies() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := campaignParam(c)
		if !ok {
			return
		}
		view, q, ok := discrepancyParams(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		if view == viewBranches {
			report, err := h.service.DiscrepanciesCrossBranch(ctx, id, q)
			if err != nil {
				h.writeError(c, "discrepancies", id, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"view": view, "kpi": report.KPI, "records": paginate(c, report.Records)})
			return
		}
		report, err := h.service.DiscrepanciesVsMaster(ctx, id, q)
		if err != nil {
			h.writeError(c, "discrepancies", id, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"view": view, "kpi": report.KPI, "records": paginate(c, report.Records)})
	}
}

func (h *Handler) exportDiscrepancies() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := campaignParam(c)
		if !ok {
			return
		}
		format, err := reports.ParseFormat(c.Query("format"))
		if err != nil {
			h.writeError(c, "exportDiscrepancies", id, err)
			return
		}
		view, q, ok := discrepancyParams(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		var table reports.Table
		if view == viewBranches {
			report, err := h.service.DiscrepanciesCrossBranch(ctx, id, q)
			if err != nil {
				h.writeError(c, "exportDiscrepancies", id, err)
				return
			}
			table = reports.Table{Sheet: "branches", Columns: consensus.CrossBranchColumns, Rows: consensus.CrossBranchRows(report.Records)}
		} else {
			report, err := h.service.DiscrepanciesVsMaster(ctx, id, q)
			if err != nil {
				h.writeError(c, "exportDiscrepancies", id, err)
				return
			}
			table = reports.Table{Sheet: "master", Columns: consensus.VsMasterColumns, Rows: consensus.VsMasterRows(report.Records)}
		}
		h.sendTable(c, id, "discrepancies_"+view, table, format)
	}
}
