package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/S2-group/swim-HTTP/internal/domain"
	"github.com/S2-group/swim-HTTP/internal/infra/observability"
	"github.com/S2-group/swim-HTTP/internal/port"
	"github.com/S2-group/swim-HTTP/internal/protocol"
	"github.com/S2-group/swim-HTTP/internal/service"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Engine runs the parse → route → dispatch → encode pipeline for one
// control request at a time. It holds no per-request state.
type Engine struct {
	registry *service.Registry
	adapter  *service.Adapter
	docs     port.DocumentLoader
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewEngine wires the control pipeline to its collaborators.
func NewEngine(registry *service.Registry, adapter *service.Adapter, docs port.DocumentLoader, metrics *observability.Metrics, logger *zap.Logger) *Engine {
	return &Engine{
		registry: registry,
		adapter:  adapter,
		docs:     docs,
		metrics:  metrics,
		logger:   logger,
	}
}

// HandleBuffer parses the received bytes, resets the buffer, and returns
// the response for the request.
func (e *Engine) HandleBuffer(ctx context.Context, buf *protocol.Buffer) protocol.Response {
	req, err := protocol.ParseBuffer(buf)
	return e.respond(ctx, req, err)
}

// Handle is HandleBuffer for an already received byte slice.
func (e *Engine) Handle(ctx context.Context, raw []byte) protocol.Response {
	req, err := protocol.Parse(raw)
	return e.respond(ctx, req, err)
}

func (e *Engine) respond(ctx context.Context, req domain.Request, parseErr error) (resp protocol.Response) {
	start := time.Now()
	requestID := uuid.New().String()
	route := RouteNone

	ctx, span := tracer.Start(ctx, "control request", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("control handler panic",
				zap.String("request_id", requestID),
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
			span.SetStatus(codes.Error, fmt.Sprint(rec))
			resp = protocol.Response{Status: http.StatusInternalServerError}
		}

		span.SetAttributes(
			attribute.String("control.request_id", requestID),
			attribute.String("control.route", route.String()),
			attribute.Int("control.status", resp.Status),
		)
		e.metrics.RecordRequest(route.String(), resp.Status, time.Since(start))
		observability.LogByStatus(e.logger, resp.Status, "control request",
			zap.String("request_id", requestID),
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.String("route", route.String()),
			zap.Int("status", resp.Status),
			zap.Int("body_bytes", len(resp.Body)),
			zap.Duration("latency", time.Since(start)),
			zap.String("trace_id", span.SpanContext().TraceID().String()),
		)
	}()

	var result protocol.Result
	if parseErr != nil {
		result = e.failure(parseErr)
	} else {
		result, route = e.dispatch(ctx, req)
	}

	resp, err := protocol.EncodeResult(result)
	if err != nil {
		e.logger.Error("response encoding failed", zap.String("request_id", requestID), zap.Error(err))
		span.RecordError(err)
	}
	return resp
}

func (e *Engine) dispatch(ctx context.Context, req domain.Request) (protocol.Result, Route) {
	route, err := Resolve(req.Method, req.Path)
	if err != nil {
		return e.failure(err), route
	}

	switch route {
	case RouteMonitor:
		return e.monitor(ctx), route
	case RouteMonitorSchema:
		return e.document(ctx, domain.DocMonitorSchema), route
	case RouteExecuteSchema:
		return e.document(ctx, domain.DocExecuteSchema), route
	case RouteAdaptationOptions:
		return e.document(ctx, domain.DocAdaptationOptions), route
	case RouteAdaptationOptionsSchema:
		return e.document(ctx, domain.DocAdaptationOptionsSchema), route
	case RouteExecute:
		return e.execute(ctx, req.Body), route
	}
	panic(fmt.Sprintf("handler: route %d has no dispatch case", route))
}

// monitor composes one snapshot into the /monitor document.
func (e *Engine) monitor(ctx context.Context) protocol.Result {
	snap := e.registry.Snapshot(ctx)

	obj := make(protocol.Object, 0, len(snap.Readings)+1)
	for _, name := range e.registry.Names() {
		if name == domain.MonUtilization {
			obj = append(obj, protocol.Field{Name: name, Value: utilizationArray(snap.Utilization)})
			continue
		}
		reading, ok := snap.Lookup(name)
		if !ok {
			panic(fmt.Sprintf("handler: snapshot has no reading for %q", name))
		}
		obj = append(obj, protocol.Field{Name: name, Value: readingValue(reading)})
	}
	return protocol.OK(obj)
}

func readingValue(r domain.Reading) protocol.Value {
	if r.Kind == domain.KindInteger {
		return protocol.Int(int64(r.Value))
	}
	return protocol.Real(r.Value)
}

func utilizationArray(samples []domain.UtilizationSample) protocol.Array {
	arr := make(protocol.Array, 0, len(samples))
	for _, s := range samples {
		arr = append(arr, protocol.Object{
			{Name: "server_name", Value: protocol.Text(s.ServerName)},
			{Name: "utilization_value", Value: protocol.Real(s.Value)},
		})
	}
	return arr
}

func (e *Engine) document(ctx context.Context, key string) protocol.Result {
	doc, err := e.docs.Load(ctx, key)
	if err != nil {
		return e.failure(err)
	}
	return protocol.OK(protocol.Raw(doc))
}

// execute decodes the whole directive before touching the model; a
// missing key aborts with no Execution Manager call.
func (e *Engine) execute(ctx context.Context, body string) protocol.Result {
	directive, err := service.DecodeDirective(body)
	if err != nil {
		return e.failure(err)
	}

	out := e.adapter.Apply(ctx, directive)
	return protocol.OK(protocol.Object{
		{Name: domain.KeyServerNumber, Value: protocol.Text(out.ServerStatus)},
		{Name: domain.KeyDimmerFactor, Value: protocol.Text(out.DimmerStatus)},
	})
}

// failure maps domain errors to status codes. Protocol-level failures get
// an empty body; decode failures carry {"error": ...}.
func (e *Engine) failure(err error) protocol.Result {
	var malformed *domain.ErrMalformedRequest
	var methodNotAllowed *domain.ErrMethodNotAllowed
	var notFound *domain.ErrRouteNotFound
	var missingKey *domain.ErrMissingKey
	var malformedBody *domain.ErrMalformedBody

	switch {
	case errors.As(err, &malformed):
		e.logger.Debug("malformed request", zap.String("error", err.Error()))
		return protocol.Fail(http.StatusBadRequest, "")
	case errors.As(err, &methodNotAllowed):
		e.logger.Debug("method not allowed", zap.String("method", methodNotAllowed.Method))
		return protocol.Fail(http.StatusMethodNotAllowed, "")
	case errors.As(err, &notFound):
		e.logger.Debug("route not found", zap.String("path", notFound.Path))
		return protocol.Fail(http.StatusNotFound, "")
	case errors.As(err, &missingKey):
		e.logger.Debug("validation error", zap.String("error", err.Error()))
		return protocol.Fail(http.StatusBadRequest, err.Error())
	case errors.As(err, &malformedBody):
		e.logger.Debug("validation error", zap.String("error", err.Error()))
		return protocol.Fail(http.StatusBadRequest, err.Error())
	default:
		e.logger.Error("unhandled error", zap.Error(err))
		return protocol.Fail(http.StatusInternalServerError, "")
	}
}
