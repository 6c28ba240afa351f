package client_test

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/S2-group/swim-HTTP/internal/infra/client"
	"github.com/S2-group/swim-HTTP/internal/infra/resilience"
)

// cannedServer answers every connection with resp and records the request.
func cannedServer(t *testing.T, resp string) (string, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	requests := make(chan string, 4)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			buf := make([]byte, 4096)
			n, _ := bufio.NewReader(conn).Read(buf)
			requests <- string(buf[:n])
			io.WriteString(conn, resp)
			conn.Close()
		}
	}()
	return ln.Addr().String(), requests
}

func newClient(addr string) *client.ControlClient {
	return client.NewControlClient(addr, time.Second,
		resilience.NewCircuitBreaker("test", 5, time.Second),
		resilience.Config{MaxRetries: 1, InitialBackoff: 5 * time.Millisecond},
	)
}

func TestExecute_SendsBodyOnLastLine(t *testing.T) {
	addr, requests := cannedServer(t, "HTTP/1.1 200 OK\r\nContent-Length: 44\r\n\r\n{\"server_number\":\"OK\",\"dimmer_factor\":\"OK\"}")

	report, err := newClient(addr).Execute(context.Background(), "2", "0.5")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.ServerNumber != "OK" || report.DimmerFactor != "OK" {
		t.Errorf("unexpected report %+v", report)
	}

	req := <-requests
	if !strings.HasPrefix(req, "PUT /execute HTTP/1.1\r\n") {
		t.Errorf("unexpected request line in %q", req)
	}
	lines := strings.Split(req, "\n")
	if last := lines[len(lines)-1]; last != `{"dimmer_factor":"0.5","server_number":"2"}` {
		t.Errorf("expected JSON body on last line, got %q", last)
	}
}

func TestStatusError(t *testing.T) {
	addr, _ := cannedServer(t, "HTTP/1.1 400 Bad Request\r\n\r\n{\"error\":\"Missing key in request: dimmer_factor\"}")

	_, err := newClient(addr).Monitor(context.Background())
	var statusErr *client.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Status != 400 || statusErr.Message != "Missing key in request: dimmer_factor" {
		t.Errorf("unexpected status error %+v", statusErr)
	}
}

func TestDial_FailsAfterRetries(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	if _, err := newClient(addr).Monitor(context.Background()); err == nil {
		t.Fatal("expected dial error")
	}
}
