package utils

import (
	"context"

	"github.com/mmdatafocus/maestro_backend/appctx"
)

var (
	ContextKeyUsername      = appctx.ContextKeyUsername
	ContextKeyBranch        = appctx.ContextKeyBranch
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
)

// GetUsernameFromContext returns the login email of the caller.
func GetUsernameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyUsername)
}

func GetBranchFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyBranch)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetUsernameInContext(ctx context.Context, username string) context.Context {
	return appctx.Set(ctx, ContextKeyUsername, username)
}

func SetBranchInContext(ctx context.Context, branch string) context.Context {
	return appctx.Set(ctx, ContextKeyBranch, branch)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}
