// Package client talks to a running control endpoint. It is used by the
// CLI subcommands and by end-to-end tests.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/S2-group/swim-HTTP/internal/domain"
	"github.com/S2-group/swim-HTTP/internal/infra/resilience"
	"github.com/S2-group/swim-HTTP/internal/protocol"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("client")

// maxResponseSize bounds how much of a response is read.
const maxResponseSize = 1 << 20

// MonitorReport is the decoded GET /monitor document.
type MonitorReport struct {
	Dimmer          float64             `json:"dimmer"`
	Servers         int                 `json:"servers"`
	ActiveServers   int                 `json:"active_servers"`
	MaxServers      int                 `json:"max_servers"`
	Utilization     []UtilizationReport `json:"utilization"`
	BasicRT         float64             `json:"basic_rt"`
	BasicThroughput float64             `json:"basic_throughput"`
	OptRT           float64             `json:"opt_rt"`
	OptThroughput   float64             `json:"opt_throughput"`
	ArrivalRate     float64             `json:"arrival_rate"`
}

// UtilizationReport is one server entry of MonitorReport.
type UtilizationReport struct {
	ServerName string  `json:"server_name"`
	Value      float64 `json:"utilization_value"`
}

// ExecuteReport is the per-field outcome of PUT /execute.
type ExecuteReport struct {
	ServerNumber string `json:"server_number"`
	DimmerFactor string `json:"dimmer_factor"`
}

// StatusError is returned when the endpoint answers with a non-200 status.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("control endpoint returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("control endpoint returned %d: %s", e.Status, e.Message)
}

// ControlClient sends one request per connection.
type ControlClient struct {
	addr    string
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
	cfg     resilience.Config
}

// NewControlClient creates a client for the endpoint at addr. Only dialing
// is retried; a request that reached the server is never resent.
func NewControlClient(addr string, timeout time.Duration, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *ControlClient {
	return &ControlClient{addr: addr, timeout: timeout, cb: cb, cfg: cfg}
}

// Do sends a raw request and returns the framed response.
func (c *ControlClient) Do(ctx context.Context, method, path, body string) (protocol.Response, error) {
	ctx, span := tracer.Start(ctx, "ControlClient.Do", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("control.method", method),
		attribute.String("control.path", path),
	)

	result, err := c.cb.Execute(func() (any, error) {
		conn, err := c.dial(ctx)
		if err != nil {
			return nil, err
		}
		defer conn.Close()

		if c.timeout > 0 {
			_ = conn.SetDeadline(time.Now().Add(c.timeout))
		}
		if _, err := io.WriteString(conn, formatRequest(c.addr, method, path, body)); err != nil {
			return nil, fmt.Errorf("write request: %w", err)
		}

		raw, err := io.ReadAll(io.LimitReader(conn, maxResponseSize))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		resp, err := protocol.ParseResponse(raw)
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		span.RecordError(err)
		return protocol.Response{}, err
	}

	resp := result.(protocol.Response)
	span.SetAttributes(attribute.Int("control.status", resp.Status))
	return resp, nil
}

func (c *ControlClient) dial(ctx context.Context) (net.Conn, error) {
	var conn net.Conn
	dialer := net.Dialer{Timeout: c.timeout}
	err := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
		var err error
		conn, err = dialer.DialContext(ctx, "tcp", c.addr)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.addr, err)
	}
	return conn, nil
}

// formatRequest builds a request whose body is the final line.
func formatRequest(host, method, path, body string) string {
	var b strings.Builder
	b.WriteString(method + " " + path + " HTTP/1.1\r\n")
	b.WriteString("Host: " + host + "\r\n")
	if body != "" {
		b.WriteString("Content-Type: application/json\r\n")
		b.WriteString("\r\n")
		b.WriteString(body)
	} else {
		b.WriteString("\r\n")
	}
	return b.String()
}

// Monitor fetches and decodes GET /monitor.
func (c *ControlClient) Monitor(ctx context.Context) (*MonitorReport, error) {
	resp, err := c.expectOK(ctx, domain.MethodGet, domain.PathMonitor, "")
	if err != nil {
		return nil, err
	}
	var report MonitorReport
	if err := json.Unmarshal(resp.Body, &report); err != nil {
		return nil, fmt.Errorf("decode monitor: %w", err)
	}
	return &report, nil
}

// Execute sends an adaptation directive. Both values travel as strings.
func (c *ControlClient) Execute(ctx context.Context, serverNumber, dimmerFactor string) (*ExecuteReport, error) {
	body, err := json.Marshal(map[string]string{
		domain.KeyServerNumber: serverNumber,
		domain.KeyDimmerFactor: dimmerFactor,
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.expectOK(ctx, domain.MethodPut, domain.PathExecute, string(body))
	if err != nil {
		return nil, err
	}
	var report ExecuteReport
	if err := json.Unmarshal(resp.Body, &report); err != nil {
		return nil, fmt.Errorf("decode execute: %w", err)
	}
	return &report, nil
}

// Document fetches one of the schema or options documents by path.
func (c *ControlClient) Document(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.expectOK(ctx, domain.MethodGet, path, "")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *ControlClient) expectOK(ctx context.Context, method, path, body string) (protocol.Response, error) {
	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		return protocol.Response{}, err
	}
	if resp.Status != http.StatusOK {
		statusErr := &StatusError{Status: resp.Status}
		var payload struct {
			Error string `json:"error"`
		}
		if len(resp.Body) > 0 && json.Unmarshal(resp.Body, &payload) == nil {
			statusErr.Message = payload.Error
		}
		return protocol.Response{}, statusErr
	}
	return resp, nil
}
