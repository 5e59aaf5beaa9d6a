package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/logging"
	"github.com/Ramsey-B/clover/pkg/tracing/exporters"
)

func TestStartSpan_WithoutTracer(t *testing.T) {
	SetTracer(nil)

	ctx, span := StartSpan(context.Background(), "Loader.Load")
	defer span.End()

	assert.Nil(t, GetActiveSpan(ctx))
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetTraceParent(ctx))
}

func TestSetup_ConsoleExporter(t *testing.T) {
	shutdown := Setup("clover-test", &exporters.ConsoleExporter{Logger: logging.Discard()})
	defer SetTracer(nil)

	ctx, span := StartSpan(context.Background(), "Pipeline.Run")
	assert.NotEmpty(t, GetTraceID(ctx))
	assert.Contains(t, GetTraceParent(ctx), GetTraceID(ctx))
	span.End()

	require.NoError(t, shutdown(context.Background()))
}
