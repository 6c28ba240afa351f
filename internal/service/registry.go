package service

import (
	"context"
	"fmt"

	"github.com/S2-group/swim-HTTP/internal/domain"
	"github.com/S2-group/swim-HTTP/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type monitorable struct {
	name string
	kind domain.ValueKind
	read func(m port.Model, p port.Probe) float64
}

// catalog is the fixed, ordered list of scalar monitorables. Utilization is
// the one non-scalar entry; it is read per server and slotted in by Names.
var catalog = []monitorable{
	{domain.MonDimmer, domain.KindReal, func(m port.Model, _ port.Probe) float64 { return 1 - m.BrownoutFactor() }},
	{domain.MonServers, domain.KindInteger, func(m port.Model, _ port.Probe) float64 { return float64(m.Servers()) }},
	{domain.MonActiveServers, domain.KindInteger, func(m port.Model, _ port.Probe) float64 { return float64(m.ActiveServers()) }},
	{domain.MonMaxServers, domain.KindInteger, func(m port.Model, _ port.Probe) float64 { return float64(m.MaxServers()) }},
	{domain.MonBasicRT, domain.KindReal, func(_ port.Model, p port.Probe) float64 { return p.BasicResponseTime() }},
	{domain.MonBasicThroughput, domain.KindReal, func(_ port.Model, p port.Probe) float64 { return p.BasicThroughput() }},
	{domain.MonOptRT, domain.KindReal, func(_ port.Model, p port.Probe) float64 { return p.OptResponseTime() }},
	{domain.MonOptThroughput, domain.KindReal, func(_ port.Model, p port.Probe) float64 { return p.OptThroughput() }},
	{domain.MonArrivalRate, domain.KindReal, func(_ port.Model, p port.Probe) float64 { return p.ArrivalRate() }},
}

// names is the /monitor field order.
var names = []string{
	domain.MonDimmer,
	domain.MonServers,
	domain.MonActiveServers,
	domain.MonMaxServers,
	domain.MonUtilization,
	domain.MonBasicRT,
	domain.MonBasicThroughput,
	domain.MonOptRT,
	domain.MonOptThroughput,
	domain.MonArrivalRate,
}

// Registry is the catalog of monitorable values, backed by live reads of
// the Model and Probe. It holds no state between requests.
type Registry struct {
	model  port.Model
	probe  port.Probe
	logger *zap.Logger
}

// NewRegistry creates the value registry.
func NewRegistry(model port.Model, probe port.Probe, logger *zap.Logger) *Registry {
	return &Registry{model: model, probe: probe, logger: logger}
}

// Names returns the monitorable names in response order, utilization included.
func (r *Registry) Names() []string {
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Kind returns the kind of a scalar monitorable.
func (r *Registry) Kind(name string) domain.ValueKind {
	return lookup(name).kind
}

// Read performs a live read of one scalar monitorable. An unknown name is
// a programming error and panics.
func (r *Registry) Read(name string) float64 {
	return lookup(name).read(r.model, r.probe)
}

// ReadUtilization samples every server slot 1..max_servers. Negative probe
// values (no such server, or no samples yet) are reported as 0.
func (r *Registry) ReadUtilization() []domain.UtilizationSample {
	return r.readUtilization(r.model.MaxServers())
}

func (r *Registry) readUtilization(maxServers int) []domain.UtilizationSample {
	samples := make([]domain.UtilizationSample, 0, max(maxServers, 0))
	for i := 1; i <= maxServers; i++ {
		name := fmt.Sprintf("server%d", i)
		v := r.probe.Utilization(name)
		if v < 0 {
			v = 0
		}
		samples = append(samples, domain.UtilizationSample{ServerName: name, Value: v})
	}
	return samples
}

// Snapshot reads every monitorable exactly once. Utilization is sampled up
// to the max_servers value captured in the same snapshot.
func (r *Registry) Snapshot(ctx context.Context) domain.Snapshot {
	_, span := tracer.Start(ctx, "Registry.Snapshot")
	defer span.End()

	snap := domain.Snapshot{Readings: make([]domain.Reading, 0, len(catalog))}
	for _, m := range catalog {
		snap.Readings = append(snap.Readings, domain.Reading{
			Name:  m.name,
			Kind:  m.kind,
			Value: m.read(r.model, r.probe),
		})
	}

	maxServers, _ := snap.Lookup(domain.MonMaxServers)
	snap.Utilization = r.readUtilization(int(maxServers.Value))

	span.SetAttributes(attribute.Int("utilization.samples", len(snap.Utilization)))
	r.logger.Debug("monitor snapshot",
		zap.Int("readings", len(snap.Readings)),
		zap.Int("utilization_samples", len(snap.Utilization)),
	)
	return snap
}

func lookup(name string) monitorable {
	for _, m := range catalog {
		if m.name == name {
			return m
		}
	}
	panic(fmt.Sprintf("service: unknown monitorable %q", name))
}
