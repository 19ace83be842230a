package dispatch

import (
	"context"
	"fmt"
	"maps"
	"strconv"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/toolgate/internal/catalog"
	"github.com/flemzord/toolgate/internal/observability"
	"github.com/flemzord/toolgate/internal/pathexpr"
	"github.com/flemzord/toolgate/internal/security"
)

// CallSpec is one step of a chain.
type CallSpec struct {
	ToolName      string         `json:"toolName"`
	StaticParams  map[string]any `json:"staticParams,omitempty"`
	ParamsMapping map[string]any `json:"paramsMapping,omitempty"`
}

// StepOutcome reports one executed step.
type StepOutcome struct {
	Index    int           `json:"index"`
	ToolName string        `json:"toolName"`
	Success  bool          `json:"success"`
	Result   any           `json:"result,omitempty"`
	Error    *ErrorPayload `json:"error,omitempty"`

	// Err is the underlying error of a failed step.
	Err error `json:"-"`
}

// BatchResult is the outcome of ExecuteBatch. Outcomes holds every
// attempted step in order; Context holds the raw result of each successful
// step keyed by its index.
type BatchResult struct {
	RunID    string           `json:"runId"`
	Outcomes []StepOutcome    `json:"outcomes"`
	Context  pathexpr.Context `json:"context"`
}

// Completed reports whether every step succeeded.
func (r BatchResult) Completed(steps int) bool {
	return len(r.Outcomes) == steps && (steps == 0 || r.Outcomes[steps-1].Success)
}

// Failed returns the failing step, if any.
func (r BatchResult) Failed() (StepOutcome, bool) {
	if n := len(r.Outcomes); n > 0 && !r.Outcomes[n-1].Success {
		return r.Outcomes[n-1], true
	}
	return StepOutcome{}, false
}

// ExecuteBatch runs steps strictly in order. Step i sees the results of
// steps 0..i-1 through path expressions in its ParamsMapping; mapped keys
// override static keys of the same name. The batch as a whole passes the
// gate once and steps use the raw execution path. The first failing step
// ends the run; earlier side effects are not undone.
//
// The returned error is non-nil only when the batch itself is refused
// (blocked or empty). Step failures are reported in the outcomes.
func (d *Dispatcher) ExecuteBatch(ctx context.Context, steps []CallSpec) (BatchResult, error) {
	runID := uuid.NewString()
	ctx, span := d.tracer.Start(ctx, observability.SpanBatch, trace.WithAttributes(
		attribute.String(observability.AttrRunID, runID),
		attribute.Int("toolgate.batch.steps", len(steps)),
	))
	defer span.End()

	decision := d.gate.Check(catalog.OpExecuteBatch)
	if !decision.Allowed {
		err := &BlockedError{Tool: catalog.OpExecuteBatch, Guidance: decision.Warning}
		d.metrics.GateDecision("blocked")
		d.audit.Log(security.AuditEvent{
			Type:     security.EventGateBlock,
			RunID:    runID,
			ToolName: catalog.OpExecuteBatch,
			Detail:   decision.Warning,
		})
		spanError(span, err)
		return BatchResult{}, err
	}
	if len(steps) == 0 {
		return BatchResult{}, ErrEmptyBatch
	}
	d.gate.RecordToolUsage(catalog.OpExecuteBatch)

	logger := d.logger.With("run_id", runID)
	logger.Info("batch started", "steps", len(steps))
	d.audit.Log(security.AuditEvent{
		Type:     security.EventChainStart,
		RunID:    runID,
		Metadata: map[string]string{"steps": strconv.Itoa(len(steps))},
	})

	res := BatchResult{
		RunID:    runID,
		Outcomes: make([]StepOutcome, 0, len(steps)),
		Context:  pathexpr.Context{},
	}
	for i, step := range steps {
		outcome := d.runStep(ctx, runID, i, step, res.Context)
		res.Outcomes = append(res.Outcomes, outcome)
		if !outcome.Success {
			logger.Warn("batch halted", "step", i, "tool", step.ToolName, "error", outcome.Err)
			break
		}
		res.Context[strconv.Itoa(i)] = outcome.Result
	}

	completed := res.Completed(len(steps))
	d.metrics.ChainRun(len(res.Outcomes), completed)
	if failed, ok := res.Failed(); ok {
		spanError(span, failed.Err)
	}
	logger.Info("batch finished", "executed", len(res.Outcomes), "completed", completed)
	return res, nil
}

func (d *Dispatcher) runStep(ctx context.Context, runID string, i int, step CallSpec, chain pathexpr.Context) StepOutcome {
	ctx, span := d.tracer.Start(ctx, observability.SpanBatchStep, trace.WithAttributes(
		attribute.String(observability.AttrTool, step.ToolName),
		attribute.Int(observability.AttrStepIndex, i),
	))
	defer span.End()

	out := StepOutcome{Index: i, ToolName: step.ToolName}
	result, err := d.step(ctx, step, chain)
	if err != nil {
		out.Err = err
		out.Error = Describe(err)
	} else {
		out.Success = true
		out.Result = result
	}
	spanError(span, err)

	idx := i
	ev := security.AuditEvent{
		Type:     security.EventChainStep,
		RunID:    runID,
		Step:     &idx,
		ToolName: step.ToolName,
		Outcome:  "ok",
	}
	if err != nil {
		ev.Outcome = string(KindOf(err))
		ev.Detail = err.Error()
	}
	d.audit.Log(ev)
	return out
}

// step resolves and executes one CallSpec against the chain so far.
func (d *Dispatcher) step(ctx context.Context, step CallSpec, chain pathexpr.Context) (any, error) {
	desc, err := d.registry.Get(step.ToolName)
	if err != nil {
		return nil, err
	}
	defer d.gate.RecordToolUsage(desc.Name)

	mapped, err := d.resolver.ResolveParams(step.ParamsMapping, chain)
	if err != nil {
		return nil, fmt.Errorf("resolving params of %s: %w", step.ToolName, err)
	}
	params := make(map[string]any, len(step.StaticParams)+len(mapped))
	maps.Copy(params, step.StaticParams)
	maps.Copy(params, mapped)

	resp, err := d.run(ctx, desc, params)
	if err != nil {
		return nil, err
	}
	return map[string]any(resp), nil
}

// ValidateChain checks a chain without executing it. Every step's mapping
// may only reference steps that precede it, and every tool must exist.
// All problems are reported in one pass.
func (d *Dispatcher) ValidateChain(steps []CallSpec) pathexpr.Report {
	report := pathexpr.Report{Valid: true, Errors: []string{}}
	if len(steps) == 0 {
		report.Valid = false
		report.Errors = append(report.Errors, ErrEmptyBatch.Error())
		return report
	}
	for i, step := range steps {
		if _, err := d.registry.Get(step.ToolName); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("step %d: unknown tool %q", i, step.ToolName))
		}
		r := pathexpr.Validate(step.ParamsMapping, pathexpr.StepLabels(i))
		for _, e := range r.Errors {
			report.Errors = append(report.Errors, fmt.Sprintf("step %d: %s", i, e))
		}
	}
	report.Valid = len(report.Errors) == 0
	return report
}
