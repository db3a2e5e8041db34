// Package otel provides OpenTelemetry tracing for dispatched requests.
//
// Two span levels are emitted:
//   - "webfetch.go.client.request" wraps one dispatched request from the
//     dispatch to the delivery of the continuation.
//   - "http.request" wraps each HTTP request sent by the transport,
//     redirects included.
package otel

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelTrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/webfetch/go-client/pkg/client"
	"github.com/webfetch/go-client/pkg/request"
)

const (
	traceAppName          = "github.com/webfetch/go-client"
	clientRequestSpanName = "webfetch.go.client.request"
	httpRequestSpanName   = "http.request"

	attrMethod     = attribute.Key("http.method")
	attrPath       = attribute.Key("http.path")
	attrURL        = attribute.Key("http.url")
	attrStatusCode = attribute.Key("http.status_code")
)

// NewTrace creates a trace factory emitting spans through the provider.
// A nil provider falls back to a no-op tracer.
func NewTrace(tracerProvider otelTrace.TracerProvider) client.TraceFactory {
	if tracerProvider == nil {
		tracerProvider = noop.NewTracerProvider()
	}
	tracer := tracerProvider.Tracer(traceAppName)

	return func() *client.Trace {
		t := &client.Trace{}
		var rootSpan otelTrace.Span
		var httpSpan otelTrace.Span
		rootCtx := context.Background()

		t.GotRequest = func(ctx context.Context, def request.Definition) {
			rootCtx, rootSpan = tracer.Start(
				ctx,
				clientRequestSpanName,
				otelTrace.WithSpanKind(otelTrace.SpanKindClient),
				otelTrace.WithAttributes(
					attrMethod.String(def.Method()),
					attrPath.String(def.Path()),
				),
			)
		}
		t.HTTPRequestStart = func(req *http.Request) {
			_, httpSpan = tracer.Start(
				rootCtx,
				httpRequestSpanName,
				otelTrace.WithSpanKind(otelTrace.SpanKindClient),
				otelTrace.WithAttributes(
					attrMethod.String(req.Method),
					attrURL.String(req.URL.String()),
				),
			)
		}
		t.HTTPRequestDone = func(res *http.Response, err error) {
			if httpSpan == nil {
				return
			}
			if res != nil {
				httpSpan.SetAttributes(attrStatusCode.Int(res.StatusCode))
			}
			if err != nil {
				httpSpan.RecordError(err)
				httpSpan.SetStatus(codes.Error, err.Error())
			}
			httpSpan.End()
			httpSpan = nil
		}
		t.RequestProcessed = func(result any, err error) {
			if rootSpan == nil {
				return
			}
			if err != nil {
				rootSpan.RecordError(err)
				rootSpan.SetStatus(codes.Error, err.Error())
			}
			rootSpan.End()
			rootSpan = nil
		}
		return t
	}
}
