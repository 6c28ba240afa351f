package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/S2-group/swim-HTTP/internal/domain"
	"github.com/S2-group/swim-HTTP/internal/infra/observability"
	"github.com/S2-group/swim-HTTP/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service")

// DecodeDirective decodes an /execute body. Both keys must be present;
// the first missing one aborts the whole directive. Values may be JSON
// strings or JSON numbers and are kept as text.
func DecodeDirective(body string) (domain.AdaptationDirective, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return domain.AdaptationDirective{}, &domain.ErrMalformedBody{Err: err}
	}
	if fields == nil {
		return domain.AdaptationDirective{}, &domain.ErrMalformedBody{Err: errors.New("body is not a JSON object")}
	}

	var values [2]string
	for i, key := range []string{domain.KeyServerNumber, domain.KeyDimmerFactor} {
		raw, ok := fields[key]
		if !ok {
			return domain.AdaptationDirective{}, &domain.ErrMissingKey{Key: key}
		}
		values[i] = coerceText(raw)
	}

	return domain.AdaptationDirective{ServerNumber: values[0], DimmerFactor: values[1]}, nil
}

// coerceText renders a JSON value as the text a client meant: strings are
// unquoted, null is empty, anything else is kept verbatim.
func coerceText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	text := strings.TrimSpace(string(raw))
	if text == "null" {
		return ""
	}
	return text
}

// Adapter validates adaptation directives against the live model and
// forwards legal changes to the Execution Manager.
type Adapter struct {
	model   port.Model
	exec    port.ExecutionManager
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewAdapter creates the adaptation validator/applier.
func NewAdapter(model port.Model, exec port.ExecutionManager, metrics *observability.Metrics, logger *zap.Logger) *Adapter {
	return &Adapter{model: model, exec: exec, metrics: metrics, logger: logger}
}

// Apply handles the server and dimmer fields independently; one failing
// never prevents the other from being applied.
func (a *Adapter) Apply(ctx context.Context, d domain.AdaptationDirective) domain.AdaptationOutcome {
	_, span := tracer.Start(ctx, "Adapter.Apply")
	defer span.End()
	span.SetAttributes(
		attribute.String("adaptation.server_number", d.ServerNumber),
		attribute.String("adaptation.dimmer_factor", d.DimmerFactor),
	)

	var out domain.AdaptationOutcome
	out.ServerStatus, out.ServersAdded, out.ServersRemoved = a.SetServers(d.ServerNumber)
	out.DimmerStatus, out.BrownoutChanged = a.SetDimmer(d.DimmerFactor)

	a.metrics.IncrAdaptationResult(domain.KeyServerNumber, out.ServerStatus)
	a.metrics.IncrAdaptationResult(domain.KeyDimmerFactor, out.DimmerStatus)

	span.SetAttributes(
		attribute.Int("adaptation.servers_added", out.ServersAdded),
		attribute.Int("adaptation.servers_removed", out.ServersRemoved),
		attribute.Bool("adaptation.brownout_changed", out.BrownoutChanged),
	)
	a.logger.Info("adaptation applied",
		zap.String("server_status", out.ServerStatus),
		zap.String("dimmer_status", out.DimmerStatus),
		zap.Int("servers_added", out.ServersAdded),
		zap.Int("servers_removed", out.ServersRemoved),
	)
	return out
}

// SetServers moves the pool toward the requested size one server at a
// time. The loop runs at most |target-current| times and stops at the
// first Execution Manager failure. raw must be a whole decimal integer;
// "2.5" is an invalid argument, not 2.
func (a *Adapter) SetServers(raw string) (status string, added, removed int) {
	target, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return domain.StatusOutOfRange, 0, 0
		}
		return domain.StatusInvalidArgument, 0, 0
	}
	if target < 0 {
		return domain.StatusOutOfRange, 0, 0
	}

	current := int64(a.model.Servers())
	maxServers := int64(a.model.MaxServers())

	if target == current {
		return domain.StatusServersSatisfied, 0, 0
	}
	if target > maxServers {
		return domain.StatusMaxServersExceeded, 0, 0
	}

	steps := target - current
	op, call := "add_server", a.exec.AddServer
	if steps < 0 {
		steps = -steps
		op, call = "remove_server", a.exec.RemoveServer
	}

	for i := int64(0); i < steps; i++ {
		a.metrics.IncrExecutionCall(op)
		if err := call(); err != nil {
			a.metrics.IncrExecutionFailure(op)
			a.logger.Error("server count change aborted",
				zap.String("operation", op),
				zap.Int64("target", target),
				zap.Int64("completed_steps", i),
				zap.Error(err),
			)
			if op == "add_server" {
				return domain.StatusExecutionManagerFailed, int(i), 0
			}
			return domain.StatusExecutionManagerFailed, 0, int(i)
		}
	}

	if op == "add_server" {
		return domain.StatusOK, int(steps), 0
	}
	return domain.StatusOK, 0, int(steps)
}

// SetDimmer forwards brownout = 1 - dimmer in a single call. The requested
// value is not range checked. Only the current dimmer is rounded to six
// significant digits before the equality check; the request is compared as
// sent.
func (a *Adapter) SetDimmer(raw string) (status string, changed bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.StatusMissingDimmer, false
	}

	dimmer, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return domain.StatusOutOfRange, false
		}
		return domain.StatusInvalidArgument, false
	}
	if math.IsNaN(dimmer) || math.IsInf(dimmer, 0) {
		return domain.StatusInvalidArgument, false
	}

	current := 1 - a.model.BrownoutFactor()
	if dimmer == domain.RoundSignificant(current) {
		return domain.StatusDimmerSatisfied, false
	}

	a.metrics.IncrExecutionCall("set_brownout")
	if err := a.exec.SetBrownout(1 - dimmer); err != nil {
		a.metrics.IncrExecutionFailure("set_brownout")
		a.logger.Error("brownout change failed", zap.Float64("dimmer", dimmer), zap.Error(err))
		return domain.StatusExecutionManagerFailed, false
	}
	return domain.StatusOK, true
}
