// Package port defines the interfaces (ports) for the collaborators of the
// control plane. The simulation engine owns the concrete implementations;
// the control plane only reads from and issues commands through these.
package port

import "context"

// Model exposes the simulated server pool and brownout state.
// Reads are synchronous and never block on I/O.
type Model interface {
	Servers() int
	ActiveServers() int
	MaxServers() int
	BrownoutFactor() float64
}

// Probe exposes derived performance metrics.
type Probe interface {
	BasicResponseTime() float64
	BasicThroughput() float64
	OptResponseTime() float64
	OptThroughput() float64
	ArrivalRate() float64
	// Utilization returns a negative value when the server does not exist
	// or has no samples yet.
	Utilization(serverName string) float64
}

// ExecutionManager applies unit changes to the running model.
type ExecutionManager interface {
	AddServer() error
	RemoveServer() error
	SetBrownout(factor float64) error
}

// DocumentLoader returns a named static JSON document verbatim.
type DocumentLoader interface {
	Load(ctx context.Context, key string) ([]byte, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
