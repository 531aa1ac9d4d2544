package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/telemetry/logging"
	"mercator-hq/relay/pkg/telemetry/tracing"
)

const tracerName = "mercator-hq/relay/pkg/routing"

// Orchestrator completes a conversation by trying every primary provider
// once in rotation order and then every fallback provider once in fixed
// order, returning the first success.
type Orchestrator struct {
	rotator  *Rotator
	resolver ProviderResolver

	targetModel       string
	honorRequestModel bool
	attemptTimeout    time.Duration

	observer Observer
	tracer   trace.Tracer
	stats    *Stats
	logger   *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTargetModel sets the model id sent to every provider.
func WithTargetModel(model string) Option {
	return func(o *Orchestrator) { o.targetModel = model }
}

// WithHonorRequestModel forwards the request's model instead of the target
// model when the request names one.
func WithHonorRequestModel(honor bool) Option {
	return func(o *Orchestrator) { o.honorRequestModel = honor }
}

// WithAttemptTimeout bounds each attempt. Zero or negative disables it.
func WithAttemptTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.attemptTimeout = d }
}

// WithObserver registers an observer for attempt and orchestration events.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithTracer overrides the tracer used for orchestration spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// NewOrchestrator creates an orchestrator over rotator's pools, resolving
// identifiers through resolver.
func NewOrchestrator(rotator *Rotator, resolver ProviderResolver, opts ...Option) (*Orchestrator, error) {
	if rotator == nil {
		return nil, errors.New("orchestrator requires a rotator")
	}
	if resolver == nil {
		return nil, errors.New("orchestrator requires a provider resolver")
	}

	o := &Orchestrator{
		rotator:     rotator,
		resolver:    resolver,
		targetModel: config.DefaultTargetModel,
		stats:       NewStats(),
		logger:      slog.Default().With("component", "routing.orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	return o, nil
}

// Rotator returns the rotator the orchestrator draws from.
func (o *Orchestrator) Rotator() *Rotator { return o.rotator }

// Stats returns the orchestrator's counters.
func (o *Orchestrator) Stats() *Stats { return o.stats }

// TargetModel returns the model id sent upstream by default.
func (o *Orchestrator) TargetModel() string { return o.targetModel }

// CompleteWithFallback runs one attempt per primary provider, drawing each
// from the rotator, then one attempt per fallback provider in configured
// order. The first successful attempt ends the call. When every attempt
// fails the error is an *AllProvidersFailedError listing each attempt.
//
// Provider failures never abort the loop. If ctx ends, the remaining
// candidates are still drawn and recorded as failed with the context error.
func (o *Orchestrator) CompleteWithFallback(ctx context.Context, messages []providers.Message, gen GenerationConfig) (*Result, error) {
	start := time.Now()
	req := o.buildRequest(messages, gen)

	ctx, span := o.tracer.Start(ctx, "routing.CompleteWithFallback",
		trace.WithAttributes(
			attribute.String(tracing.AttrModel, req.Model),
			attribute.Int(tracing.AttrPrimarySize, len(o.rotator.primary.members)),
			attribute.Int(tracing.AttrFallbackSize, len(o.rotator.fallback.members)),
		),
	)
	defer span.End()
	tracing.SetRequestID(span, logging.GetRequestID(ctx))

	n := len(o.rotator.primary.members)
	attempts := make([]Attempt, 0, n+len(o.rotator.fallback.members))

	round := o.rotator.NextPrimaryRound()
	for name, ok := round.Next(); ok; name, ok = round.Next() {
		resp, a := o.attempt(ctx, name, PoolPrimary, req)
		attempts = append(attempts, a)
		if resp != nil {
			return o.succeed(ctx, span, start, req.Model, resp, attempts), nil
		}
	}

	for _, name := range o.rotator.FallbackSequence() {
		resp, a := o.attempt(ctx, name, PoolFallback, req)
		attempts = append(attempts, a)
		if resp != nil {
			return o.succeed(ctx, span, start, req.Model, resp, attempts), nil
		}
	}

	err := &AllProvidersFailedError{Attempts: attempts}
	o.stats.recordOrchestration(OutcomeFailure, "")
	span.SetStatus(codes.Error, ErrAllProvidersFailed.Error())
	span.SetAttributes(attribute.Int(tracing.AttrAttempts, len(attempts)))

	o.logger.ErrorContext(ctx, "all providers failed",
		"request_id", logging.GetRequestID(ctx),
		"attempts", len(attempts),
		"providers", err.Providers(),
	)
	o.report(ctx, Report{
		StartedAt: start,
		Duration:  time.Since(start),
		Outcome:   OutcomeFailure,
		Model:     req.Model,
		Attempts:  attempts,
	})
	return nil, err
}

func (o *Orchestrator) buildRequest(messages []providers.Message, gen GenerationConfig) *providers.CompletionRequest {
	model := o.targetModel
	if o.honorRequestModel && gen.Model != "" {
		model = gen.Model
	}
	return &providers.CompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: gen.Temperature,
		MaxTokens:   gen.MaxTokens,
		Stream:      false,
	}
}

func (o *Orchestrator) succeed(ctx context.Context, span trace.Span, start time.Time, model string, resp *providers.CompletionResponse, attempts []Attempt) *Result {
	last := attempts[len(attempts)-1]
	res := &Result{
		Response: resp,
		Provider: last.Provider,
		Pool:     last.Pool,
		Model:    model,
		Attempts: attempts,
		Duration: time.Since(start),
	}

	o.stats.recordOrchestration(OutcomeSuccess, last.Pool)
	span.SetAttributes(
		attribute.String(tracing.AttrProvider, last.Provider),
		attribute.String(tracing.AttrPool, string(last.Pool)),
		attribute.Int(tracing.AttrAttempts, len(attempts)),
	)

	o.logger.InfoContext(ctx, "completion served",
		"request_id", logging.GetRequestID(ctx),
		"provider", last.Provider,
		"pool", last.Pool,
		"attempts", len(attempts),
		"duration_ms", res.Duration.Milliseconds(),
	)
	o.report(ctx, Report{
		StartedAt: start,
		Duration:  res.Duration,
		Outcome:   OutcomeSuccess,
		Provider:  last.Provider,
		Pool:      last.Pool,
		Model:     model,
		Attempts:  attempts,
	})
	return res
}

// attempt calls one provider and converts every failure mode into an
// Attempt. A nil response means the attempt failed.
func (o *Orchestrator) attempt(ctx context.Context, name string, pool Pool, req *providers.CompletionRequest) (resp *providers.CompletionResponse, a Attempt) {
	a = Attempt{Provider: name, Pool: pool}
	start := time.Now()

	ctx, span := o.tracer.Start(ctx, "routing.attempt",
		trace.WithAttributes(
			attribute.String(tracing.AttrProvider, name),
			attribute.String(tracing.AttrPool, string(pool)),
		),
	)

	defer func() {
		if r := recover(); r != nil {
			resp = nil
			a.Err = fmt.Errorf("provider panicked: %v", r)
		}

		a.Duration = time.Since(start)
		if a.Err != nil {
			a.Outcome = OutcomeFailure
			a.Reason = a.Err.Error()
			span.RecordError(a.Err)
			span.SetStatus(codes.Error, a.Reason)
			o.logger.WarnContext(ctx, "provider attempt failed",
				"request_id", logging.GetRequestID(ctx),
				"provider", name,
				"pool", pool,
				"error", a.Err,
				"duration_ms", a.Duration.Milliseconds(),
			)
		} else {
			a.Outcome = OutcomeSuccess
		}
		span.SetAttributes(attribute.String(tracing.AttrOutcome, string(a.Outcome)))
		span.End()

		o.stats.recordAttempt(a)
		if o.observer != nil {
			o.observer.ObserveAttempt(ctx, a)
		}
	}()

	if err := ctx.Err(); err != nil {
		a.Err = err
		return nil, a
	}

	p, err := o.resolver.GetProvider(name)
	if err != nil {
		a.Err = err
		return nil, a
	}

	callCtx := ctx
	if o.attemptTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.attemptTimeout)
		defer cancel()
	}

	out, err := p.SendCompletion(callCtx, req)
	switch {
	case err != nil:
		a.Err = err
		return nil, a
	case out == nil || strings.TrimSpace(out.Content) == "":
		a.Err = ErrEmptyResponse
		return nil, a
	}
	return out, a
}

func (o *Orchestrator) report(ctx context.Context, r Report) {
	if o.observer == nil {
		return
	}
	r.RequestID = logging.GetRequestID(ctx)
	o.observer.ObserveOrchestration(ctx, r)
}
