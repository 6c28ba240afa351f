package service_test

import "errors"

// --- Mocks ---

type mockModel struct {
	servers  int
	active   int
	max      int
	brownout float64
}

func (m *mockModel) Servers() int            { return m.servers }
func (m *mockModel) ActiveServers() int      { return m.active }
func (m *mockModel) MaxServers() int         { return m.max }
func (m *mockModel) BrownoutFactor() float64 { return m.brownout }

type mockProbe struct {
	basicRT, basicTP, optRT, optTP, arrival float64
	utilization                             map[string]float64
	utilizationCalls                        int
}

func (p *mockProbe) BasicResponseTime() float64 { return p.basicRT }
func (p *mockProbe) BasicThroughput() float64   { return p.basicTP }
func (p *mockProbe) OptResponseTime() float64   { return p.optRT }
func (p *mockProbe) OptThroughput() float64     { return p.optTP }
func (p *mockProbe) ArrivalRate() float64       { return p.arrival }

func (p *mockProbe) Utilization(name string) float64 {
	p.utilizationCalls++
	if v, ok := p.utilization[name]; ok {
		return v
	}
	return -1
}

// mockExecutor records calls and mutates the model it is attached to,
// like the real Execution Manager would.
type mockExecutor struct {
	model     *mockModel
	adds      int
	removes   int
	brownouts []float64
	failAfter int // fail every call once this many calls succeeded; 0 = never
}

var errExec = errors.New("execution manager unavailable")

func (e *mockExecutor) calls() int { return e.adds + e.removes + len(e.brownouts) }

func (e *mockExecutor) fail() bool {
	return e.failAfter > 0 && e.calls() >= e.failAfter
}

func (e *mockExecutor) AddServer() error {
	if e.fail() {
		return errExec
	}
	e.adds++
	e.model.servers++
	return nil
}

func (e *mockExecutor) RemoveServer() error {
	if e.fail() {
		return errExec
	}
	e.removes++
	e.model.servers--
	return nil
}

func (e *mockExecutor) SetBrownout(f float64) error {
	if e.fail() {
		return errExec
	}
	e.brownouts = append(e.brownouts, f)
	e.model.brownout = f
	return nil
}
