package context

import "context"

type ContextKey string

var (
	RunIDKey = ContextKey("X-Run-Id")
	GroupKey = ContextKey("X-Group")
	ZIPKey   = ContextKey("X-Zip")
	DUNSKey  = ContextKey("X-Duns")
)

func SetRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

func GetRunID(ctx context.Context) string {
	value, ok := ctx.Value(RunIDKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetGroup(ctx context.Context, group string) context.Context {
	return context.WithValue(ctx, GroupKey, group)
}

func GetGroup(ctx context.Context) string {
	value, ok := ctx.Value(GroupKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetZIP(ctx context.Context, zip string) context.Context {
	return context.WithValue(ctx, ZIPKey, zip)
}

func GetZIP(ctx context.Context) string {
	value, ok := ctx.Value(ZIPKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetDUNS(ctx context.Context, duns string) context.Context {
	return context.WithValue(ctx, DUNSKey, duns)
}

func GetDUNS(ctx context.Context) string {
	value, ok := ctx.Value(DUNSKey).(string)
	if !ok {
		return ""
	}
	return value
}

// Fields returns the run-scoped values present in ctx, for structured logs.
func Fields(ctx context.Context) map[string]any {
	fields := make(map[string]any, 4)
	if v := GetRunID(ctx); v != "" {
		fields["run_id"] = v
	}
	if v := GetGroup(ctx); v != "" {
		fields["group"] = v
	}
	if v := GetZIP(ctx); v != "" {
		fields["zip"] = v
	}
	if v := GetDUNS(ctx); v != "" {
		fields["duns"] = v
	}
	return fields
}
