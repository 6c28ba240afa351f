// Package protocol implements the control plane's text wire format:
// request parsing, typed JSON encoding and response framing.
//
// A request is a whitespace separated "METHOD PATH" followed by optional
// header lines. The body, if any, is the last non-empty line of the buffer;
// there is no blank-line header/body separator.
package protocol

import (
	"io"
	"strings"

	"github.com/S2-group/swim-HTTP/internal/domain"
)

// DefaultBufferSize is the receive buffer capacity used when none is configured.
const DefaultBufferSize = 4000

// Buffer is a fixed-capacity receive buffer. It is reused across requests,
// so every parse goes through ParseBuffer, which resets it before returning.
type Buffer struct {
	data []byte
	n    int
}

// NewBuffer allocates a receive buffer with the given capacity.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Buffer{data: make([]byte, size)}
}

// Receive performs a single read from r into the buffer, replacing any
// previous content. One receive event carries one request.
func (b *Buffer) Receive(r io.Reader) (int, error) {
	b.Reset()
	n, err := r.Read(b.data)
	b.n = n
	if n > 0 && err == io.EOF {
		err = nil
	}
	return n, err
}

// Len returns the number of bytes received by the last Receive.
func (b *Buffer) Len() int { return b.n }

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int { return len(b.data) }

// Bytes returns the received bytes. The slice aliases the buffer and is
// only valid until the next Reset or Receive.
func (b *Buffer) Bytes() []byte { return b.data[:b.n] }

// Reset zeroes the received bytes so nothing leaks into the next request.
func (b *Buffer) Reset() {
	clear(b.data[:b.n])
	b.n = 0
}

// ParseBuffer parses the received bytes and resets the buffer.
func ParseBuffer(b *Buffer) (domain.Request, error) {
	defer b.Reset()
	return Parse(b.Bytes())
}

// Parse builds a Request from exactly the received bytes. It keeps no
// reference to buf.
func Parse(buf []byte) (domain.Request, error) {
	input := string(buf)

	words := strings.Fields(input)
	if len(words) < 2 {
		return domain.Request{}, &domain.ErrMalformedRequest{Tokens: len(words)}
	}

	return domain.Request{
		Method: words[0],
		Path:   words[1],
		Body:   lastLine(input),
	}, nil
}

// lastLine returns the last non-empty line, or "" when that line is the
// request line itself.
func lastLine(input string) string {
	lines := strings.Split(input, "\n")

	first := -1
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			first = i
			break
		}
	}

	for i := len(lines) - 1; i > first; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
