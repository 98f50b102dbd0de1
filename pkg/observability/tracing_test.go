package observability

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtstore/rtstore/pkg/config"
	"github.com/rtstore/rtstore/pkg/errors"
)

func TestInitTracingDisabled(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitTracing(config.TracingConfig{Enabled: false}, WithWriter(&buf)))

	_, span := StartSpan(context.Background(), "noop")
	span.SetAttribute("rows", 3)
	span.End()

	require.NoError(t, Shutdown(context.Background()))
	assert.Empty(t, buf.String())
}

func TestInitTracingExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.TracingConfig{Enabled: true, ServiceName: "rtstore-test", SamplingRate: 1}
	require.NoError(t, InitTracing(cfg, WithWriter(&buf), WithServiceVersion("test")))

	ctx, parent := StartSpan(context.Background(), "memnode.flush")
	parent.SetAttribute("table", "db.t1")
	parent.SetAttribute("rows", int64(42))
	parent.SetAttribute("partition", int32(2))
	parent.SetAttribute("ratio", 0.5)
	parent.SetAttribute("empty", false)
	parent.SetAttribute("other", []int{1})

	_, child := StartSpan(ctx, "formats.dump")
	child.Fail(errors.New(errors.ErrorTypePersistence, "disk full"))
	child.Fail(nil)
	child.End()
	parent.End()

	require.NoError(t, Shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "memnode.flush")
	assert.Contains(t, out, "formats.dump")
	assert.Contains(t, out, "db.t1")
	assert.Contains(t, out, "rtstore-test")
	assert.Contains(t, out, "persistence")
}

func TestInitTracingNeverSample(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.TracingConfig{Enabled: true, ServiceName: "rtstore-test", SamplingRate: 0}
	require.NoError(t, InitTracing(cfg, WithWriter(&buf), WithPrettyPrint()))

	_, span := StartSpan(context.Background(), "dropped")
	span.End()

	require.NoError(t, Shutdown(context.Background()))
	assert.NotContains(t, buf.String(), "dropped")
}

func TestShutdownWithoutInit(t *testing.T) {
	require.NoError(t, InitTracing(config.TracingConfig{Enabled: true, ServiceName: "x", SamplingRate: 1}, WithWriter(io.Discard)))
	require.NoError(t, Shutdown(context.Background()))
	assert.NoError(t, Shutdown(context.Background()))
}
