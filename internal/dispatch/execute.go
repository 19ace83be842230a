package dispatch

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/toolgate/internal/backend"
	"github.com/flemzord/toolgate/internal/catalog"
	"github.com/flemzord/toolgate/internal/observability"
	"github.com/flemzord/toolgate/internal/security"
)

// Result is the outcome of a successful Execute.
type Result struct {
	// Value is the backend response, unchanged.
	Value backend.Response

	// Tip is the gate's advisory note, if any.
	Tip string
}

// Execute runs one gated tool call: lookup, gate check, validation,
// backend call. Usage is recorded with the gate for every call that passed
// the gate, whatever its outcome.
func (d *Dispatcher) Execute(ctx context.Context, tool string, params map[string]any) (Result, error) {
	ctx, span := d.tracer.Start(ctx, observability.SpanExecute,
		trace.WithAttributes(attribute.String(observability.AttrTool, tool)))
	defer span.End()

	desc, err := d.registry.Get(tool)
	if err != nil {
		d.metrics.ToolCall(tool, string(KindNotFound), 0)
		spanError(span, err)
		return Result{}, err
	}

	decision := d.gate.Check(tool)
	if !decision.Allowed {
		err := &BlockedError{Tool: tool, Guidance: decision.Warning}
		d.metrics.GateDecision("blocked")
		d.metrics.ToolCall(tool, string(KindBlocked), 0)
		d.audit.Log(security.AuditEvent{
			Type:     security.EventGateBlock,
			ToolName: tool,
			Detail:   decision.Warning,
		})
		d.logger.Info("call blocked by workflow gate", "tool", tool)
		spanError(span, err)
		return Result{}, err
	}
	if decision.Tip != "" {
		d.metrics.GateDecision("tip")
	} else {
		d.metrics.GateDecision("allowed")
	}
	defer d.gate.RecordToolUsage(tool)

	resp, err := d.run(ctx, desc, params)
	spanError(span, err)
	if err != nil {
		return Result{}, err
	}
	return Result{Value: resp, Tip: decision.Tip}, nil
}

// ExecuteRaw validates and forwards a call without consulting the gate or
// recording usage. Batch steps go through this path.
func (d *Dispatcher) ExecuteRaw(ctx context.Context, tool string, params map[string]any) (backend.Response, error) {
	desc, err := d.registry.Get(tool)
	if err != nil {
		d.metrics.ToolCall(tool, string(KindNotFound), 0)
		return nil, err
	}
	return d.run(ctx, desc, params)
}

// run is the raw execution path shared by single calls and batch steps.
func (d *Dispatcher) run(ctx context.Context, desc *catalog.Descriptor, params map[string]any) (backend.Response, error) {
	tool := desc.Name
	logger := d.logger.With("tool", tool)

	if err := d.limiter.Allow(tool); err != nil {
		d.metrics.ToolCall(tool, string(KindRateLimited), 0)
		d.audit.Log(security.AuditEvent{Type: security.EventRateLimit, ToolName: tool, Detail: err.Error()})
		return nil, err
	}

	if err := desc.Validate(params); err != nil {
		d.metrics.ToolCall(tool, string(KindValidation), 0)
		logger.Debug("parameter validation failed", "error", err)
		return nil, err
	}
	params = desc.WithDefaults(params)

	d.audit.Log(security.AuditEvent{Type: security.EventToolCall, ToolName: tool, Params: params})

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	callCtx, span := d.tracer.Start(callCtx, observability.SpanBackendCall,
		trace.WithAttributes(attribute.String(observability.AttrTool, tool)))

	start := time.Now()
	resp, err := d.backend.Call(callCtx, backend.Request{ToolName: tool, Params: params})
	elapsed := time.Since(start)

	err = d.classify(ctx, tool, resp, err)
	spanError(span, err)
	span.End()

	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
	}
	d.metrics.ToolCall(tool, outcome, elapsed)
	d.audit.Log(security.AuditEvent{
		Type:       security.EventToolResult,
		ToolName:   tool,
		Outcome:    outcome,
		DurationMS: elapsed.Milliseconds(),
		Detail:     errDetail(err),
	})

	if err != nil {
		logger.Warn("tool call failed", "kind", outcome, "elapsed", elapsed, "error", err)
		return nil, err
	}
	logger.Debug("tool call succeeded", "elapsed", elapsed)
	return resp, nil
}

// classify maps a backend reply to the dispatch error taxonomy.
func (d *Dispatcher) classify(parent context.Context, tool string, resp backend.Response, err error) error {
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			if parent.Err() != nil {
				return parent.Err()
			}
			return &TimeoutError{Tool: tool, After: d.timeout}
		case errors.Is(err, context.Canceled):
			return err
		default:
			return &TransportError{Tool: tool, Err: err}
		}
	}
	if resp == nil {
		return &TransportError{Tool: tool, Err: errors.New("empty response")}
	}
	if ok, present := resp["success"].(bool); present && !ok {
		msg, _ := resp["message"].(string)
		return &ExecutionError{Tool: tool, Message: msg, Response: resp}
	}
	return nil
}

// spanError marks span as failed with err's kind. It does not end the span.
func spanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, string(KindOf(err)))
	span.SetAttributes(attribute.String(observability.AttrErrorKind, string(KindOf(err))))
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
