package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/maestro_backend/consensus"
	"github.com/mmdatafocus/maestro_backend/filter"
	"github.com/mmdatafocus/maestro_backend/middlewares"
	"github.com/mmdatafocus/maestro_backend/session"
	"github.com/mmdatafocus/maestro_backend/utils"
)

// bindJSON answers 400 with per-field errors when the body does not bind.
func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{
			Error:  "invalid request",
			Kind:   string(consensus.KindValidation),
			Fields: utils.ProcessValidationErrors(err),
		})
		return false
	}
	return true
}

func campaignParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		badRequest(c, "invalid campaign id")
		return 0, false
	}
	return id, true
}

func currentSession(c *gin.Context) *session.Session {
	sess, _ := middlewares.CurrentSession(c)
	return sess
}

// boolQuery reads true/false query values; absent means no filter.
func boolQuery(c *gin.Context, key string) (*bool, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		badRequest(c, key+" must be true or false")
		return nil, false
	}
	return &v, true
}

var queryTimeLayouts = []string{time.RFC3339, "2006-01-02"}

// timeQuery accepts RFC 3339 or a plain date. A plain date used as an upper
// bound covers the whole day.
func timeQuery(c *gin.Context, key string, upper bool) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return time.Time{}, true
	}
	for i, layout := range queryTimeLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if upper && i == 1 {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t, true
	}
	badRequest(c, key+" must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	return time.Time{}, false
}

func intQuery(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return def
	}
	return v
}

func paginate[T any](c *gin.Context, rows []T) filter.Page[T] {
	page := min(intQuery(c, "page", 1), filter.MaxPage)
	return filter.Paginate(rows, page, intQuery(c, "page_size", filter.DefaultPageSize))
}
