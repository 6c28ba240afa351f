// Package transport serves the control protocol over TCP: one request per
// connection, one response, then close.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/S2-group/swim-HTTP/internal/infra/resilience"
	"github.com/S2-group/swim-HTTP/internal/protocol"

	"go.uber.org/zap"
)

// Handler turns one received buffer into one response. It must leave the
// buffer reset.
type Handler interface {
	HandleBuffer(ctx context.Context, buf *protocol.Buffer) protocol.Response
}

// Config holds listener parameters.
type Config struct {
	Addr         string
	BufferSize   int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server accepts control connections. Connections are accepted
// concurrently but handled one at a time: the single receive buffer is
// owned by whoever holds the bulkhead slot.
type Server struct {
	cfg      Config
	handler  Handler
	bulkhead *resilience.Bulkhead
	buf      *protocol.Buffer
	logger   *zap.Logger

	mu      sync.Mutex
	ln      net.Listener
	wg      sync.WaitGroup
	started sync.Once
	done    chan struct{}
}

// NewServer creates a control listener for handler.
func NewServer(cfg Config, handler Handler, logger *zap.Logger) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 5 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &Server{
		cfg:      cfg,
		handler:  handler,
		bulkhead: resilience.NewBulkhead(1),
		buf:      protocol.NewBuffer(cfg.BufferSize),
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// ListenAndServe listens on cfg.Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := strings.TrimSpace(s.cfg.Addr)
	if addr == "" {
		s.markStarted()
		return fmt.Errorf("empty control listen address")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.markStarted()
		return fmt.Errorf("listen control endpoint %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or ln is closed.
// It waits for in-flight connections before returning. Serve must be
// called at most once per Server.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.markStarted()

	defer func() { _ = ln.Close() }()
	defer s.wg.Wait()

	s.logger.Info("control endpoint listening",
		zap.String("addr", ln.Addr().String()),
		zap.Int("buffer_size", s.buf.Cap()),
	)

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, acceptErr := ln.Accept()
		if acceptErr != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(acceptErr, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(acceptErr, &ne) && ne.Timeout() {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return fmt.Errorf("accept control endpoint: %w", acceptErr)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, conn)
		}()
	}
}

// Addr returns the listening address once Serve has started, or nil if
// ListenAndServe failed before listening.
func (s *Server) Addr() net.Addr {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) markStarted() {
	s.started.Do(func() { close(s.done) })
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := s.bulkhead.Acquire(ctx); err != nil {
		return
	}
	defer s.bulkhead.Release()

	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	n, err := s.buf.Receive(conn)
	if err != nil {
		s.buf.Reset()
		if !errors.Is(err, io.EOF) {
			s.logger.Debug("control receive failed",
				zap.String("remote_addr", conn.RemoteAddr().String()),
				zap.Error(err),
			)
		}
		return
	}
	if n == s.buf.Cap() {
		s.logger.Warn("control request filled the receive buffer",
			zap.String("remote_addr", conn.RemoteAddr().String()),
			zap.Int("bytes", n),
		)
	}

	resp := s.handler.HandleBuffer(ctx, s.buf)

	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if _, err := conn.Write(resp.Bytes()); err != nil {
		s.logger.Debug("control write failed",
			zap.String("remote_addr", conn.RemoteAddr().String()),
			zap.Error(err),
		)
	}
}
