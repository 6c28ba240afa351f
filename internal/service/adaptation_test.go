package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/S2-group/swim-HTTP/internal/domain"
	"github.com/S2-group/swim-HTTP/internal/infra/observability"
	"github.com/S2-group/swim-HTTP/internal/service"

	"go.uber.org/zap"
)

func newAdapter(model *mockModel) (*service.Adapter, *mockExecutor) {
	exec := &mockExecutor{model: model}
	return service.NewAdapter(model, exec, observability.NewMetrics(), zap.NewNop()), exec
}

func TestDecodeDirective_StringsAndNumbers(t *testing.T) {
	d, err := service.DecodeDirective(`{"server_number":"3","dimmer_factor":0.5}`)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if d.ServerNumber != "3" || d.DimmerFactor != "0.5" {
		t.Errorf("unexpected directive %+v", d)
	}
}

func TestDecodeDirective_MissingKey(t *testing.T) {
	cases := map[string]string{
		`{"server_number":"3"}`:  domain.KeyDimmerFactor,
		`{"dimmer_factor":"1"}`:  domain.KeyServerNumber,
		`{}`:                     domain.KeyServerNumber,
		`{"servers":"3","x":""}`: domain.KeyServerNumber,
	}
	for body, key := range cases {
		_, err := service.DecodeDirective(body)
		var missing *domain.ErrMissingKey
		if !errors.As(err, &missing) {
			t.Errorf("%s: expected ErrMissingKey, got %v", body, err)
			continue
		}
		if missing.Key != key {
			t.Errorf("%s: expected missing %s, got %s", body, key, missing.Key)
		}
		if err.Error() != "Missing key in request: "+key {
			t.Errorf("unexpected message %q", err.Error())
		}
	}
}

func TestDecodeDirective_Malformed(t *testing.T) {
	for _, body := range []string{"", "PUT /execute", "null", `[1,2]`, `{"server_number":`} {
		_, err := service.DecodeDirective(body)
		var malformed *domain.ErrMalformedBody
		if !errors.As(err, &malformed) {
			t.Errorf("%q: expected ErrMalformedBody, got %v", body, err)
		}
	}
}

func TestApply_IdempotentWhenSatisfied(t *testing.T) {
	model := &mockModel{servers: 2, max: 5, brownout: 0.7}
	a, exec := newAdapter(model)

	out := a.Apply(context.Background(), domain.AdaptationDirective{ServerNumber: "2", DimmerFactor: "0.3"})

	if out.ServerStatus != domain.StatusServersSatisfied {
		t.Errorf("expected servers satisfied, got %q", out.ServerStatus)
	}
	if out.DimmerStatus != domain.StatusDimmerSatisfied {
		t.Errorf("expected dimmer satisfied, got %q", out.DimmerStatus)
	}
	if exec.calls() != 0 {
		t.Errorf("expected zero execution calls, got %d", exec.calls())
	}
}

func TestSetServers_ScaleUp(t *testing.T) {
	model := &mockModel{servers: 2, max: 5}
	a, exec := newAdapter(model)

	status, added, removed := a.SetServers("4")
	if status != domain.StatusOK {
		t.Fatalf("expected OK, got %q", status)
	}
	if exec.adds != 2 || added != 2 || removed != 0 {
		t.Errorf("expected exactly 2 adds, got adds=%d added=%d removed=%d", exec.adds, added, removed)
	}
	if model.servers != 4 {
		t.Errorf("expected final count 4, got %d", model.servers)
	}
}

func TestSetServers_ScaleDown(t *testing.T) {
	model := &mockModel{servers: 5, max: 5}
	a, exec := newAdapter(model)

	status, _, removed := a.SetServers("1")
	if status != domain.StatusOK || exec.removes != 4 || removed != 4 {
		t.Errorf("expected 4 removals, got status=%q removes=%d", status, exec.removes)
	}
	if exec.adds != 0 {
		t.Errorf("expected no adds, got %d", exec.adds)
	}
}

func TestSetServers_MaxExceeded(t *testing.T) {
	model := &mockModel{servers: 2, max: 3}
	a, exec := newAdapter(model)

	status, _, _ := a.SetServers("4")
	if status != domain.StatusMaxServersExceeded {
		t.Errorf("expected max exceeded, got %q", status)
	}
	if exec.adds != 0 {
		t.Errorf("expected no addServer calls, got %d", exec.adds)
	}
}

func TestSetServers_BadArguments(t *testing.T) {
	model := &mockModel{servers: 2, max: 3}
	a, exec := newAdapter(model)

	cases := map[string]string{
		"three":                domain.StatusInvalidArgument,
		"":                     domain.StatusInvalidArgument,
		"2.5":                  domain.StatusInvalidArgument,
		"99999999999999999999": domain.StatusOutOfRange,
		"4294967296":           domain.StatusOutOfRange,
		"-1":                   domain.StatusOutOfRange,
	}
	for raw, want := range cases {
		if status, _, _ := a.SetServers(raw); status != want {
			t.Errorf("%q: expected %q, got %q", raw, want, status)
		}
	}
	if exec.calls() != 0 {
		t.Errorf("expected no execution calls, got %d", exec.calls())
	}
}

func TestSetServers_StopsOnExecutorFailure(t *testing.T) {
	model := &mockModel{servers: 1, max: 10}
	a, exec := newAdapter(model)
	exec.failAfter = 3

	status, added, _ := a.SetServers("10")
	if status != domain.StatusExecutionManagerFailed {
		t.Fatalf("expected execution failure, got %q", status)
	}
	if added != 3 || exec.adds != 3 {
		t.Errorf("expected loop to stop after 3 adds, got added=%d adds=%d", added, exec.adds)
	}
}

func TestSetDimmer(t *testing.T) {
	model := &mockModel{servers: 1, max: 1, brownout: 0}
	a, exec := newAdapter(model)

	if status, _ := a.SetDimmer(""); status != domain.StatusMissingDimmer {
		t.Errorf("expected missing dimmer, got %q", status)
	}
	if status, _ := a.SetDimmer("half"); status != domain.StatusInvalidArgument {
		t.Errorf("expected invalid argument, got %q", status)
	}
	if status, _ := a.SetDimmer("NaN"); status != domain.StatusInvalidArgument {
		t.Errorf("expected invalid argument for NaN, got %q", status)
	}
	if status, _ := a.SetDimmer("1e400"); status != domain.StatusOutOfRange {
		t.Errorf("expected out of range, got %q", status)
	}

	status, changed := a.SetDimmer("0.25")
	if status != domain.StatusOK || !changed {
		t.Fatalf("expected OK, got %q", status)
	}
	if len(exec.brownouts) != 1 || exec.brownouts[0] != 0.75 {
		t.Errorf("expected one SetBrownout(0.75), got %v", exec.brownouts)
	}
}

func TestSetDimmer_ComparesRequestUnrounded(t *testing.T) {
	model := &mockModel{servers: 1, max: 1, brownout: 0.7}
	a, exec := newAdapter(model)

	if status, changed := a.SetDimmer("0.3"); status != domain.StatusDimmerSatisfied || changed {
		t.Fatalf("expected 0.3 to match 1-0.7, got %q", status)
	}
	if len(exec.brownouts) != 0 {
		t.Fatalf("expected no SetBrownout, got %v", exec.brownouts)
	}

	for _, raw := range []string{"0.3000001", "0.29999996", "0.30000049"} {
		model.brownout = 0.7
		before := len(exec.brownouts)
		status, changed := a.SetDimmer(raw)
		if status != domain.StatusOK || !changed {
			t.Errorf("%s: expected OK, got %q", raw, status)
		}
		if len(exec.brownouts) != before+1 {
			t.Errorf("%s: expected one SetBrownout call, got %d", raw, len(exec.brownouts)-before)
		}
	}
}

func TestSetServers_FractionRejected(t *testing.T) {
	model := &mockModel{servers: 1, max: 3}
	a, exec := newAdapter(model)

	if status, _, _ := a.SetServers("2.5"); status != domain.StatusInvalidArgument {
		t.Errorf("expected invalid argument, got %q", status)
	}
	if exec.adds != 0 {
		t.Errorf("expected no AddServer calls, got %d", exec.adds)
	}
}

func TestSetDimmer_OutOfUnitRangeForwarded(t *testing.T) {
	model := &mockModel{servers: 1, max: 1, brownout: 0}
	a, exec := newAdapter(model)

	if status, _ := a.SetDimmer("1.5"); status != domain.StatusOK {
		t.Fatalf("expected OK, got %q", status)
	}
	if exec.brownouts[0] != -0.5 {
		t.Errorf("expected brownout -0.5 forwarded, got %v", exec.brownouts[0])
	}
}

func TestApply_PartialSuccess(t *testing.T) {
	model := &mockModel{servers: 2, max: 3, brownout: 0}
	a, exec := newAdapter(model)

	out := a.Apply(context.Background(), domain.AdaptationDirective{ServerNumber: "9", DimmerFactor: "0.5"})

	if out.ServerStatus != domain.StatusMaxServersExceeded {
		t.Errorf("expected max exceeded, got %q", out.ServerStatus)
	}
	if out.DimmerStatus != domain.StatusOK || !out.BrownoutChanged {
		t.Errorf("expected dimmer applied, got %q", out.DimmerStatus)
	}
	if exec.adds != 0 || len(exec.brownouts) != 1 {
		t.Errorf("unexpected calls adds=%d brownouts=%v", exec.adds, exec.brownouts)
	}
}
