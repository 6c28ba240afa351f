package resilience

import (
	"errors"

	"github.com/S2-group/swim-HTTP/internal/domain"
	"github.com/S2-group/swim-HTTP/internal/port"

	"github.com/sony/gobreaker"
)

// GuardedExecutor wraps an ExecutionManager with a circuit breaker so a
// failing simulator is short-circuited instead of being hammered by every
// unit step of an adaptation.
type GuardedExecutor struct {
	next port.ExecutionManager
	cb   *gobreaker.CircuitBreaker
}

// NewGuardedExecutor wraps next with cb.
func NewGuardedExecutor(next port.ExecutionManager, cb *gobreaker.CircuitBreaker) *GuardedExecutor {
	return &GuardedExecutor{next: next, cb: cb}
}

func (g *GuardedExecutor) AddServer() error {
	return g.run("add_server", g.next.AddServer)
}

func (g *GuardedExecutor) RemoveServer() error {
	return g.run("remove_server", g.next.RemoveServer)
}

func (g *GuardedExecutor) SetBrownout(factor float64) error {
	return g.run("set_brownout", func() error { return g.next.SetBrownout(factor) })
}

// State reports the breaker state, for health checks.
func (g *GuardedExecutor) State() gobreaker.State {
	return g.cb.State()
}

func (g *GuardedExecutor) run(op string, fn func() error) error {
	_, err := g.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if err == nil {
		return nil
	}
	var execErr *domain.ErrExecution
	if errors.As(err, &execErr) {
		return err
	}
	return &domain.ErrExecution{Operation: op, Err: err}
}
