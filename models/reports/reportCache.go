package reports

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mmdatafocus/maestro_backend/config"
	"github.com/mmdatafocus/maestro_backend/utils"
	"github.com/sirupsen/logrus"
)

func reportCacheEnabled() bool {
	v := strings.TrimSpace(os.Getenv("ENABLE_REPORT_CACHE"))
	return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes") || strings.EqualFold(v, "on")
}

func reportCacheTTL() time.Duration {
	// Env: REPORT_CACHE_TTL_SECONDS (default 120s)
	ttl := 120
	if v := strings.TrimSpace(os.Getenv("REPORT_CACHE_TTL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ttl = n
		}
	}
	return time.Duration(ttl) * time.Second
}

func reportSlowMs() int64 {
	// Env: REPORT_SLOW_MS (default 500ms)
	ms := int64(500)
	if v := strings.TrimSpace(os.Getenv("REPORT_SLOW_MS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			ms = n
		}
	}
	return ms
}

func logSlowReport(ctx context.Context, name string, started time.Time, rows int) {
	d := time.Since(started)
	if d.Milliseconds() < reportSlowMs() {
		return
	}
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	config.GetLogger().WithFields(logrus.Fields{
		"report":         name,
		"ms":             d.Milliseconds(),
		"rows":           rows,
		"correlation_id": cid,
	}).Warn("slow_report")
}

func reportCacheKey(name string) string {
	return "Report:" + name
}

// CachedTable returns the table stored under name, building and caching it
// on a miss. The cache is skipped unless ENABLE_REPORT_CACHE is set.
func CachedTable(ctx context.Context, name string, build func(ctx context.Context) (Table, error)) (Table, error) {
	key := reportCacheKey(name)
	if reportCacheEnabled() {
		var cached Table
		if ok, err := config.GetRedisObject(key, &cached); err == nil && ok {
			return cached, nil
		}
	}

	started := time.Now()
	t, err := build(ctx)
	if err != nil {
		return Table{}, err
	}
	logSlowReport(ctx, name, started, len(t.Rows))

	if reportCacheEnabled() {
		if err := config.SetRedisObject(key, t, reportCacheTTL()); err != nil {
			config.LogError(config.GetLogger(), "reports", "CachedTable", "store cache", name, err)
		}
	}
	return t, nil
}

// InvalidateReports drops cached tables by name.
func InvalidateReports(names ...string) {
	if len(names) == 0 {
		return
	}
	keys := make([]string, 0, len(names))
	for _, n := range names {
		keys = append(keys, reportCacheKey(n))
	}
	if err := config.RemoveRedisKey(keys...); err != nil {
		config.LogError(config.GetLogger(), "reports", "InvalidateReports", "remove keys", names, err)
	}
}
