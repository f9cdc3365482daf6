package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/maestro_backend/consensus"
	"github.com/mmdatafocus/maestro_backend/models/reports"
	"github.com/mmdatafocus/maestro_backend/workflow"
)

func reviewQuery(c *gin.Context) (workflow.ReviewQuery, bool) {
	q := workflow.ReviewQuery{
		Sku:      c.Query("sku"),
		Branch:   c.Query("branch"),
		Decision: consensus.DecisionState(c.Query("decision")),
	}
	if q.Decision != "" && q.Decision != consensus.DecisionStateUndecided && !q.Decision.IsValid() {
		badRequest(c, "decision must be undecided, accepted_pending, accepted_applied or rejected")
		return q, false
	}
	var ok bool
	if q.Consensus, ok = boolQuery(c, "consensus"); !ok {
		return q, false
	}
	if q.Conflict, ok = boolQuery(c, "conflict"); !ok {
		return q, false
	}
	if q.From, ok = timeQuery(c, "from", false); !ok {
		return q, false
	}
	if q.To, ok = timeQuery(c, "to", true); !ok {
		return q, false
	}
	return q, true
}

func (h *Handler) review() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := campaignParam(c)
		if !ok {
			return
		}
		q, ok := reviewQuery(c)
		if !ok {
			return
		}
		rows, err := h.service.Review(c.Request.Context(), id, q)
		if err != nil {
			h.writeError(c, "review", id, err)
			return
		}
		c.JSON(http.StatusOK, paginate(c, rows))
	}
}

func (h *Handler) reviewSku() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := campaignParam(c)
		if !ok {
			return
		}
		result, err := h.service.ReviewSku(c.Request.Context(), id, c.Param("sku"))
		if err != nil {
			h.writeError(c, "reviewSku", c.Param("sku"), err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func (h *Handler) exportReview() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := campaignParam(c)
		if !ok {
			return
		}
		format, err := reports.ParseFormat(c.Query("format"))
		if err != nil {
			h.writeError(c, "exportReview", id, err)
			return
		}
		q, ok := reviewQuery(c)
		if !ok {
			return
		}
		results, err := h.service.Review(c.Request.Context(), id, q)
		if err != nil {
			h.writeError(c, "exportReview", id, err)
			return
		}
		table := reports.Table{Sheet: "review", Columns: consensus.ProposalColumns}
		for _, r := range results {
			table.Rows = append(table.Rows, r.ProposalRows()...)
		}
		h.sendTable(c, id, "review", table, format)
	}
}

// decideRequest names the proposal either by its codes or by its key
// ("07|02|01").
type decideRequest struct {
	Sku            string            `json:"sku" binding:"required"`
	Triple         string            `json:"triple"`
	Category       string            `json:"category"`
	Type           string            `json:"type"`
	Classification string            `json:"classification"`
	Outcome        consensus.Outcome `json:"outcome" binding:"required,oneof=accept reject"`
}

func (h *Handler) decide() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := campaignParam(c)
		if !ok {
			return
		}
		var req decideRequest
		if !bindJSON(c, &req) {
			return
		}
		triple := consensus.NewTriple(req.Category, req.Type, req.Classification)
		if strings.TrimSpace(req.Triple) != "" {
			triple = consensus.ParseTripleKey(req.Triple)
		}
		res, err := h.service.Decide(c.Request.Context(), id, workflow.DecideInput{
			Sku:       req.Sku,
			Triple:    triple,
			Outcome:   req.Outcome,
			DecidedBy: currentSession(c).Email,
		})
		if err != nil {
			h.writeError(c, "decide", req, err)
			return
		}
		c.JSON(http.StatusCreated, res)
	}
}
