package luxctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerbose(t *testing.T) {
	ctx := context.Background()
	assert.False(t, IsVerbose(ctx))
	assert.True(t, IsVerbose(SetVerbose(ctx, true)))
	assert.False(t, IsVerbose(SetVerbose(SetVerbose(ctx, true), false)))
}

func TestTraceIndependentOfVerbose(t *testing.T) {
	ctx := SetVerbose(context.Background(), true)
	assert.False(t, IsTrace(ctx))
	ctx = SetTrace(ctx, true)
	assert.True(t, IsTrace(ctx))
	assert.True(t, IsVerbose(ctx))
}
