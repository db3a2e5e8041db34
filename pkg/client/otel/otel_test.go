package otel_test

import (
	"context"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkTrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/webfetch/go-client/pkg/client"
	"github.com/webfetch/go-client/pkg/client/otel"
	"github.com/webfetch/go-client/pkg/request"
)

func send(ctx context.Context, c client.Client, def request.Definition) client.Result {
	out := make(chan client.Result, 1)
	c.Dispatch(ctx, def, func(res client.Result) {
		out <- res
	})
	return <-out
}

func TestTraceSpans(t *testing.T) {
	t.Parallel()
	recorder := tracetest.NewSpanRecorder()
	provider := sdkTrace.NewTracerProvider(sdkTrace.WithSpanProcessor(recorder))

	c, transport := client.NewMockedClient()
	c = c.WithBaseURL("https://example.com").WithTrace(otel.NewTrace(provider))
	defer c.Close()
	transport.RegisterResponder("GET", "https://example.com/users", httpmock.NewStringResponder(200, `[]`))

	res := send(context.Background(), c, request.New().WithGet("users"))
	require.NoError(t, res.Err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	// Inner HTTP span ends first.
	httpSpan := spans[0]
	assert.Equal(t, "http.request", httpSpan.Name())
	assert.Contains(t, httpSpan.Attributes(), attribute.String("http.url", "https://example.com/users"))
	assert.Contains(t, httpSpan.Attributes(), attribute.Int("http.status_code", 200))

	rootSpan := spans[1]
	assert.Equal(t, "webfetch.go.client.request", rootSpan.Name())
	assert.Contains(t, rootSpan.Attributes(), attribute.String("http.method", "GET"))
	assert.Contains(t, rootSpan.Attributes(), attribute.String("http.path", "users"))
	assert.Equal(t, codes.Unset, rootSpan.Status().Code)

	// Parenting: the HTTP span belongs to the request span.
	assert.Equal(t, rootSpan.SpanContext().SpanID(), httpSpan.Parent().SpanID())
}

func TestTraceSpansError(t *testing.T) {
	t.Parallel()
	recorder := tracetest.NewSpanRecorder()
	provider := sdkTrace.NewTracerProvider(sdkTrace.WithSpanProcessor(recorder))

	c, transport := client.NewMockedClient()
	c = c.WithBaseURL("https://example.com").WithTrace(otel.NewTrace(provider))
	defer c.Close()
	transport.RegisterResponder("GET", "https://example.com/missing", httpmock.NewStringResponder(404, `{"error":"not found"}`))

	res := send(context.Background(), c, request.New().WithGet("missing"))
	require.Error(t, res.Err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	rootSpan := spans[1]
	assert.Equal(t, codes.Error, rootSpan.Status().Code)
}

func TestTraceNilProvider(t *testing.T) {
	t.Parallel()
	c, transport := client.NewMockedClient()
	c = c.WithBaseURL("https://example.com").WithTrace(otel.NewTrace(nil))
	defer c.Close()
	transport.RegisterResponder("GET", "https://example.com/users", httpmock.NewStringResponder(200, `[]`))

	res := send(context.Background(), c, request.New().WithGet("users"))
	assert.NoError(t, res.Err)
}
