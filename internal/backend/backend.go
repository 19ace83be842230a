// Package backend is the client side of the execution backend: the external
// service that actually performs tool side effects. The gateway sends it
// {toolName, params} and receives {success, message?, ...payload}.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Sentinel errors for the backend package.
var (
	ErrTransport = errors.New("backend: transport failure")
	ErrClosed    = errors.New("backend: client closed")
	ErrNoURL     = errors.New("backend: url is required")
)

// Request is one tool invocation.
type Request struct {
	ToolName string         `json:"toolName"`
	Params   map[string]any `json:"params"`
}

// Response is the decoded backend reply. The gateway inspects "success" and
// "message" and passes everything else through untouched.
type Response = map[string]any

// Backend executes tool calls. Call returns ctx.Err() (possibly wrapped)
// when the context ends first, and an error wrapping ErrTransport when the
// backend cannot be reached or replies with something that is not a
// response object.
type Backend interface {
	Call(ctx context.Context, req Request) (Response, error)
	Close() error
}

func transportErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTransport, fmt.Sprintf(format, args...))
}

// decodeResponse decodes one reply object. Numbers are kept as json.Number
// so integer IDs above 2^53 survive the round trip to later chain steps.
func decodeResponse(raw []byte) (Response, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var out Response
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after reply object")
	}
	if out == nil {
		return nil, errors.New("reply is null")
	}
	return out, nil
}
