package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Result is the outcome of handling one request, before encoding.
// A nil Value produces an empty body.
type Result struct {
	Status int
	Value  Value
}

// OK wraps a successful result.
func OK(v Value) Result {
	return Result{Status: http.StatusOK, Value: v}
}

// Fail builds an error result. An empty message produces an empty body,
// otherwise the body is {"error": msg}.
func Fail(status int, msg string) Result {
	if msg == "" {
		return Result{Status: status}
	}
	return Result{Status: status, Value: Object{{Name: "error", Value: Text(msg)}}}
}

// Response is an encoded status and body ready to be framed.
type Response struct {
	Status int
	Body   []byte
}

// StatusLine returns e.g. "404 Not Found".
func (r Response) StatusLine() string {
	return strconv.Itoa(r.Status) + " " + http.StatusText(r.Status)
}

// Bytes frames the response for the wire.
func (r Response) Bytes() []byte {
	var b bytes.Buffer
	b.Grow(128 + len(r.Body))
	b.WriteString("HTTP/1.1 " + r.StatusLine() + "\r\n")
	b.WriteString("Content-Type: application/json\r\n")
	b.WriteString("Content-Length: " + strconv.Itoa(len(r.Body)) + "\r\n")
	b.WriteString("Accept-Ranges: bytes\r\n")
	b.WriteString("Connection: close\r\n")
	b.WriteString("\r\n")
	b.Write(r.Body)
	return b.Bytes()
}

// EncodeResult serializes a Result. It never fails: an encoding error
// degrades to an empty 500 response and is returned for logging only.
func EncodeResult(res Result) (Response, error) {
	if res.Value == nil {
		return Response{Status: res.Status}, nil
	}
	body, err := Encode(res.Value)
	if err != nil {
		return Response{Status: http.StatusInternalServerError}, err
	}
	return Response{Status: res.Status, Body: body}, nil
}

// ParseResponse splits a framed response into status and body.
// Used by clients of the control protocol.
func ParseResponse(raw []byte) (Response, error) {
	head, body, found := bytes.Cut(raw, []byte("\r\n\r\n"))
	if !found {
		return Response{}, errors.New("response: missing header terminator")
	}

	statusLine, _, _ := strings.Cut(string(head), "\r\n")
	fields := strings.Fields(statusLine)
	if len(fields) < 2 || !strings.HasPrefix(fields[0], "HTTP/") {
		return Response{}, fmt.Errorf("response: bad status line %q", statusLine)
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return Response{}, fmt.Errorf("response: bad status code %q: %w", fields[1], err)
	}

	return Response{Status: code, Body: body}, nil
}
