package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBoolDefault(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// PublishMaestroUpdates makes applied queue entries write outbox rows that the
// dispatcher publishes to MAESTRO_UPDATES_TOPIC.
//
// Set via env:
// - PUBLISH_MAESTRO_UPDATES=true
func PublishMaestroUpdates() bool {
	return envBoolDefault("PUBLISH_MAESTRO_UPDATES", false)
}

func MaestroUpdatesTopic() string {
	if v := strings.TrimSpace(os.Getenv("MAESTRO_UPDATES_TOPIC")); v != "" {
		return v
	}
	return "maestro-updates"
}

// ExportUploadEnabled stores generated export files in GCS and hands out a
// signed URL instead of streaming the file.
//
// Set via env:
// - EXPORT_UPLOAD_ENABLED=true (requires GCS_BUCKET)
func ExportUploadEnabled() bool {
	return envBoolDefault("EXPORT_UPLOAD_ENABLED", false) && strings.TrimSpace(os.Getenv("GCS_BUCKET")) != ""
}

func RateLimitEnabled() bool {
	return envBoolDefault("RATE_LIMIT_ENABLED", false)
}

func SkipMigrations() bool {
	return envBoolDefault("SKIP_MIGRATIONS", false)
}

// SessionLifespan comes from TOKEN_HOUR_LIFESPAN, default 12 hours.
func SessionLifespan() time.Duration {
	return time.Duration(intFromEnv("TOKEN_HOUR_LIFESPAN", 12)) * time.Hour
}

// MasterCacheLifespan comes from CACHE_LIFESPAN (hours), default 1 hour.
func MasterCacheLifespan() time.Duration {
	return time.Duration(intFromEnv("CACHE_LIFESPAN", 1)) * time.Hour
}

// RateLimitMaxRequests per client IP and window; RATE_LIMIT_MAX_REQUESTS,
// default 600.
func RateLimitMaxRequests() int64 {
	return int64(intFromEnv("RATE_LIMIT_MAX_REQUESTS", 600))
}

// RateLimitWindow comes from RATE_LIMIT_WINDOW_SECONDS, default 60.
func RateLimitWindow() time.Duration {
	return time.Duration(intFromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second
}

// ExportLinkLifespan comes from EXPORT_LINK_MINUTES, default 15.
func ExportLinkLifespan() time.Duration {
	return time.Duration(intFromEnv("EXPORT_LINK_MINUTES", 15)) * time.Minute
}
