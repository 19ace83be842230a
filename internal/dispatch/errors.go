package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/toolgate/internal/backend"
	"github.com/flemzord/toolgate/internal/catalog"
	"github.com/flemzord/toolgate/internal/pathexpr"
	"github.com/flemzord/toolgate/internal/security"
)

// Sentinel errors for the dispatch package.
var (
	ErrBlocked    = errors.New("blocked by workflow gate")
	ErrExecution  = errors.New("backend reported failure")
	ErrTransport  = errors.New("backend unreachable")
	ErrTimeout    = errors.New("backend call timed out")
	ErrEmptyBatch = errors.New("batch has no steps")
)

// BlockedError is returned when the workflow gate refuses a call. The
// backend is never contacted.
type BlockedError struct {
	Tool     string
	Guidance string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrBlocked, e.Tool, e.Guidance)
}

func (e *BlockedError) Unwrap() error { return ErrBlocked }

// ExecutionError carries a logical failure reported by the backend.
type ExecutionError struct {
	Tool     string
	Message  string
	Response backend.Response
}

func (e *ExecutionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", ErrExecution, e.Tool)
	}
	return fmt.Sprintf("%s: %s: %s", ErrExecution, e.Tool, e.Message)
}

func (e *ExecutionError) Unwrap() error { return ErrExecution }

// TransportError wraps a failure to reach the backend or to understand
// its reply.
type TransportError struct {
	Tool string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrTransport, e.Tool, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

// TimeoutError is returned when the backend does not answer within the
// dispatch timeout. The call is not retried and its side effects, if any,
// are not undone.
type TimeoutError struct {
	Tool  string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: %s: no response after %s", ErrTimeout, e.Tool, e.After)
}

func (e *TimeoutError) Unwrap() []error { return []error{ErrTimeout, context.DeadlineExceeded} }

// Kind is the machine-readable class of an error.
type Kind string

// Error kinds surfaced to clients.
const (
	KindDuplicateTool Kind = "duplicate_tool"
	KindNotFound      Kind = "not_found"
	KindValidation    Kind = "validation"
	KindBlocked       Kind = "blocked"
	KindResolution    Kind = "resolution"
	KindExecution     Kind = "execution"
	KindTransport     Kind = "transport"
	KindTimeout       Kind = "timeout"
	KindRateLimited   Kind = "rate_limited"
	KindCanceled      Kind = "canceled"
	KindInternal      Kind = "internal"
)

// KindOf classifies err. Nil yields "".
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBlocked):
		return KindBlocked
	case errors.Is(err, catalog.ErrToolNotFound):
		return KindNotFound
	case errors.Is(err, catalog.ErrDuplicateTool):
		return KindDuplicateTool
	case errors.Is(err, catalog.ErrValidation), errors.Is(err, ErrEmptyBatch):
		return KindValidation
	case errors.Is(err, pathexpr.ErrResolution):
		return KindResolution
	case errors.Is(err, security.ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrExecution):
		return KindExecution
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrTransport), errors.Is(err, backend.ErrTransport):
		return KindTransport
	case errors.Is(err, context.Canceled):
		return KindCanceled
	default:
		return KindInternal
	}
}

// ErrorPayload is the client-facing rendering of an error.
type ErrorPayload struct {
	Kind       Kind     `json:"kind"`
	Message    string   `json:"message"`
	Tool       string   `json:"tool,omitempty"`
	Fields     []string `json:"fields,omitempty"`
	Guidance   string   `json:"guidance,omitempty"`
	Expression string   `json:"expression,omitempty"`
}

// Describe renders err for clients, lifting structured details out of the
// typed errors.
func Describe(err error) *ErrorPayload {
	if err == nil {
		return nil
	}
	p := &ErrorPayload{Kind: KindOf(err), Message: err.Error()}

	var (
		blocked *BlockedError
		valErr  *catalog.ValidationError
		resErr  *pathexpr.ResolutionError
		execErr *ExecutionError
		trErr   *TransportError
		toErr   *TimeoutError
	)
	switch {
	case errors.As(err, &blocked):
		p.Tool, p.Guidance = blocked.Tool, blocked.Guidance
	case errors.As(err, &valErr):
		p.Tool, p.Fields = valErr.Tool, valErr.Fields
	case errors.As(err, &resErr):
		p.Expression = resErr.Expression
	case errors.As(err, &execErr):
		p.Tool = execErr.Tool
		if execErr.Message != "" {
			p.Message = execErr.Message
		}
	case errors.As(err, &trErr):
		p.Tool = trErr.Tool
	case errors.As(err, &toErr):
		p.Tool = toErr.Tool
	}
	return p
}
