package service_test

import (
	"context"
	"testing"

	"github.com/S2-group/swim-HTTP/internal/domain"
	"github.com/S2-group/swim-HTTP/internal/service"

	"go.uber.org/zap"
)

func TestRegistry_NamesOrder(t *testing.T) {
	reg := service.NewRegistry(&mockModel{}, &mockProbe{}, zap.NewNop())

	want := []string{
		"dimmer", "servers", "active_servers", "max_servers", "utilization",
		"basic_rt", "basic_throughput", "opt_rt", "opt_throughput", "arrival_rate",
	}
	got := reg.Names()
	if len(got) != len(want) {
		t.Fatalf("expected %d names, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestRegistry_ReadLive(t *testing.T) {
	model := &mockModel{servers: 2, active: 1, max: 4, brownout: 0.25}
	reg := service.NewRegistry(model, &mockProbe{arrival: 12.5}, zap.NewNop())

	if v := reg.Read(domain.MonDimmer); v != 0.75 {
		t.Errorf("expected dimmer 0.75, got %v", v)
	}
	if v := reg.Read(domain.MonArrivalRate); v != 12.5 {
		t.Errorf("expected arrival rate 12.5, got %v", v)
	}

	model.servers = 3
	if v := reg.Read(domain.MonServers); v != 3 {
		t.Errorf("expected live read of 3 servers, got %v", v)
	}
	if reg.Kind(domain.MonServers) != domain.KindInteger || reg.Kind(domain.MonOptRT) != domain.KindReal {
		t.Error("unexpected kinds")
	}
}

func TestRegistry_ReadUnknownPanics(t *testing.T) {
	reg := service.NewRegistry(&mockModel{}, &mockProbe{}, zap.NewNop())

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown monitorable")
		}
	}()
	reg.Read("queue_length")
}

func TestRegistry_UtilizationNormalized(t *testing.T) {
	model := &mockModel{servers: 2, active: 2, max: 3}
	probe := &mockProbe{utilization: map[string]float64{"server1": 0.4, "server2": -1}}
	reg := service.NewRegistry(model, probe, zap.NewNop())

	samples := reg.ReadUtilization()
	if len(samples) != 3 {
		t.Fatalf("expected one sample per max server (3), got %d", len(samples))
	}
	want := []domain.UtilizationSample{
		{ServerName: "server1", Value: 0.4},
		{ServerName: "server2", Value: 0},
		{ServerName: "server3", Value: 0},
	}
	for i, s := range samples {
		if s != want[i] {
			t.Errorf("sample %d: expected %+v, got %+v", i, want[i], s)
		}
	}
}

func TestRegistry_SnapshotReadsOnce(t *testing.T) {
	model := &mockModel{servers: 1, active: 1, max: 2, brownout: 0}
	probe := &mockProbe{basicRT: 0.1, optRT: 0.2, utilization: map[string]float64{"server1": 0.5}}
	reg := service.NewRegistry(model, probe, zap.NewNop())

	snap := reg.Snapshot(context.Background())

	if len(snap.Readings) != 9 {
		t.Fatalf("expected 9 scalar readings, got %d", len(snap.Readings))
	}
	if probe.utilizationCalls != 2 {
		t.Errorf("expected 2 utilization probes, got %d", probe.utilizationCalls)
	}
	r, ok := snap.Lookup(domain.MonOptRT)
	if !ok || r.Value != 0.2 || r.Kind != domain.KindReal {
		t.Errorf("unexpected opt_rt reading %+v", r)
	}
	if len(snap.Utilization) != 2 {
		t.Errorf("expected 2 utilization samples, got %d", len(snap.Utilization))
	}
}
