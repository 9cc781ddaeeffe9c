// Package luxctx carries per-call flags through context.Context so that
// transports can dump bus traffic without a logger dependency.
package luxctx

import "context"

type ctxIndex int

const (
	ctxIndexVerbose ctxIndex = iota
	ctxIndexTrace
)

func IsVerbose(ctx context.Context) bool {
	val, ok := ctx.Value(ctxIndexVerbose).(bool)
	return ok && val
}

func SetVerbose(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, ctxIndexVerbose, value)
}

// IsTrace reports whether raw register transactions should be logged at debug level.
func IsTrace(ctx context.Context) bool {
	val, ok := ctx.Value(ctxIndexTrace).(bool)
	return ok && val
}

func SetTrace(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, ctxIndexTrace, value)
}
