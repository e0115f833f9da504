package core

import "context"

type contextKey string

const ctxKeySourceName contextKey = "source_name"

// ContextWithSourceName records the name a source is known by to its user,
// such as the original name of an uploaded file stored under a temporary path.
// Run reports use it instead of the path.
func ContextWithSourceName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ctxKeySourceName, name)
}

// SourceNameFromContext returns the name stored by ContextWithSourceName, or "".
func SourceNameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeySourceName).(string); ok {
		return v
	}
	return ""
}
