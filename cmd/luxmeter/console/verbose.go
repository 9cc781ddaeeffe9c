package console

import (
	"context"

	"github.com/mklimuk/luxmeter/luxctx"
)

func SetVerbose(parent context.Context, value bool) context.Context {
	return luxctx.SetVerbose(parent, value)
}

func IsVerbose(ctx context.Context) bool {
	return luxctx.IsVerbose(ctx)
}
