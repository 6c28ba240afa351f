// Package sim is an in-process stand-in for the simulation engine. A single
// Simulator backs the Model, Probe and ExecutionManager ports so the control
// plane can run without an external simulator.
//
// Performance figures come from a closed-form queueing approximation rather
// than a discrete-event run: they are deterministic for a given state.
package sim

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds the simulated pool and workload parameters.
type Config struct {
	InitialServers   int
	MaxServers       int
	BootDelay        time.Duration
	ArrivalRate      float64 // requests per second
	BasicServiceTime float64 // seconds per request without optional content
	OptServiceTime   float64 // seconds per request with optional content
	InitialDimmer    float64
}

// ErrPoolFull is returned by AddServer when the pool is at MaxServers.
var ErrPoolFull = errors.New("server pool at maximum")

// ErrPoolEmpty is returned by RemoveServer when no server is left.
var ErrPoolEmpty = errors.New("server pool empty")

// maxQueueUtilization caps the response-time blowup of a saturated pool.
const maxQueueUtilization = 0.99

type server struct {
	name     string
	activeAt time.Time
}

// Simulator holds the server pool and brownout state.
type Simulator struct {
	mu       sync.RWMutex
	cfg      Config
	servers  []server
	brownout float64
	now      func() time.Time
	logger   *zap.Logger
}

// New creates a simulator with InitialServers already active.
func New(cfg Config, logger *zap.Logger) *Simulator {
	s := &Simulator{
		cfg:      cfg,
		brownout: 1 - cfg.InitialDimmer,
		now:      time.Now,
		logger:   logger,
	}
	booted := s.now()
	for i := 0; i < cfg.InitialServers && i < cfg.MaxServers; i++ {
		s.servers = append(s.servers, server{name: serverName(i + 1), activeAt: booted})
	}
	return s
}

func serverName(i int) string {
	return fmt.Sprintf("server%d", i)
}

// ============================================================
// Model
// ============================================================

func (s *Simulator) Servers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.servers)
}

func (s *Simulator) ActiveServers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeLocked(s.now())
}

func (s *Simulator) MaxServers() int {
	return s.cfg.MaxServers
}

func (s *Simulator) BrownoutFactor() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.brownout
}

func (s *Simulator) activeLocked(now time.Time) int {
	n := 0
	for _, srv := range s.servers {
		if !now.Before(srv.activeAt) {
			n++
		}
	}
	return n
}

// ============================================================
// ExecutionManager
// ============================================================

// AddServer appends one server; it serves requests after BootDelay.
func (s *Simulator) AddServer() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.servers) >= s.cfg.MaxServers {
		return ErrPoolFull
	}
	srv := server{name: serverName(len(s.servers) + 1), activeAt: s.now().Add(s.cfg.BootDelay)}
	s.servers = append(s.servers, srv)

	s.logger.Info("server added",
		zap.String("server", srv.name),
		zap.Int("servers", len(s.servers)),
		zap.Duration("boot_delay", s.cfg.BootDelay),
	)
	return nil
}

// RemoveServer removes the most recently added server.
func (s *Simulator) RemoveServer() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.servers) == 0 {
		return ErrPoolEmpty
	}
	srv := s.servers[len(s.servers)-1]
	s.servers = s.servers[:len(s.servers)-1]

	s.logger.Info("server removed",
		zap.String("server", srv.name),
		zap.Int("servers", len(s.servers)),
	)
	return nil
}

// SetBrownout stores the factor unvalidated; the probe clamps it to [0,1].
func (s *Simulator) SetBrownout(factor float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.brownout = factor
	s.logger.Info("brownout set", zap.Float64("brownout", factor))
	return nil
}

// ============================================================
// Probe
// ============================================================

type load struct {
	active      int
	dimmer      float64
	utilization float64
	served      float64
	queueFactor float64
}

func (s *Simulator) loadLocked(now time.Time) load {
	l := load{
		active: s.activeLocked(now),
		dimmer: math.Max(0, math.Min(1, 1-s.brownout)),
	}
	if l.active == 0 {
		return l
	}

	meanService := l.dimmer*s.cfg.OptServiceTime + (1-l.dimmer)*s.cfg.BasicServiceTime
	if meanService <= 0 {
		l.served = s.cfg.ArrivalRate
		l.queueFactor = 1
		return l
	}

	u := s.cfg.ArrivalRate * meanService / float64(l.active)
	l.utilization = math.Min(u, 1)
	l.served = math.Min(s.cfg.ArrivalRate, float64(l.active)/meanService)
	l.queueFactor = 1 / (1 - math.Min(u, maxQueueUtilization))
	return l
}

func (s *Simulator) currentLoad() load {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadLocked(s.now())
}

func (s *Simulator) BasicResponseTime() float64 {
	l := s.currentLoad()
	if l.active == 0 {
		return 0
	}
	return s.cfg.BasicServiceTime * l.queueFactor
}

func (s *Simulator) OptResponseTime() float64 {
	l := s.currentLoad()
	if l.active == 0 {
		return 0
	}
	return s.cfg.OptServiceTime * l.queueFactor
}

func (s *Simulator) BasicThroughput() float64 {
	l := s.currentLoad()
	return l.served * (1 - l.dimmer)
}

func (s *Simulator) OptThroughput() float64 {
	l := s.currentLoad()
	return l.served * l.dimmer
}

func (s *Simulator) ArrivalRate() float64 {
	return s.cfg.ArrivalRate
}

// Utilization returns -1 for unknown or still-booting servers.
func (s *Simulator) Utilization(serverName string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	for _, srv := range s.servers {
		if srv.name != serverName {
			continue
		}
		if now.Before(srv.activeAt) {
			return -1
		}
		return s.loadLocked(now).utilization
	}
	return -1
}
