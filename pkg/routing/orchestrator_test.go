package routing

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/relay/internal/providertest"
	"mercator-hq/relay/pkg/providers"
)

var testMessages = []providers.Message{
	{Role: providers.RoleUser, Content: providers.TextContent("hello")},
}

// recordingObserver captures events for assertions.
type recordingObserver struct {
	mu       sync.Mutex
	attempts []Attempt
	reports  []Report
}

func (r *recordingObserver) ObserveAttempt(_ context.Context, a Attempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
}

func (r *recordingObserver) ObserveOrchestration(_ context.Context, rep Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
}

func newTestOrchestrator(t *testing.T, primary, fallback []string, resolver ProviderResolver, opts ...Option) *Orchestrator {
	t.Helper()
	r, err := NewRotator(primary, fallback)
	if err != nil {
		t.Fatalf("NewRotator() error = %v", err)
	}
	o, err := NewOrchestrator(r, resolver, opts...)
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	return o
}

func attemptProviders(attempts []Attempt) []string {
	out := make([]string, len(attempts))
	for i, a := range attempts {
		out[i] = a.Provider
	}
	return out
}

func TestNewOrchestrator_Validation(t *testing.T) {
	r, _ := NewRotator([]string{"a"}, nil)

	if _, err := NewOrchestrator(nil, providertest.Resolver{}); err == nil {
		t.Error("expected error for nil rotator")
	}
	if _, err := NewOrchestrator(r, nil); err == nil {
		t.Error("expected error for nil resolver")
	}

	o, err := NewOrchestrator(r, providertest.Resolver{})
	if err != nil {
		t.Fatal(err)
	}
	if o.TargetModel() != "gpt-4o" {
		t.Errorf("default TargetModel() = %q, want gpt-4o", o.TargetModel())
	}
}

func TestCompleteWithFallback_Scenarios(t *testing.T) {
	tests := []struct {
		name         string
		primary      []string
		fallback     []string
		failing      []string
		wantErr      bool
		wantProvider string
		wantPool     Pool
		wantOrder    []string
	}{
		{
			name:         "first primary succeeds",
			primary:      []string{"a", "b"},
			fallback:     []string{"c"},
			wantProvider: "a",
			wantPool:     PoolPrimary,
			wantOrder:    []string{"a"},
		},
		{
			name:         "second primary succeeds",
			primary:      []string{"a", "b"},
			fallback:     []string{"c"},
			failing:      []string{"a"},
			wantProvider: "b",
			wantPool:     PoolPrimary,
			wantOrder:    []string{"a", "b"},
		},
		{
			name:         "second fallback succeeds",
			primary:      []string{"a", "b"},
			fallback:     []string{"c", "d"},
			failing:      []string{"a", "b", "c"},
			wantProvider: "d",
			wantPool:     PoolFallback,
			wantOrder:    []string{"a", "b", "c", "d"},
		},
		{
			name:      "single primary no fallback",
			primary:   []string{"a"},
			failing:   []string{"a"},
			wantErr:   true,
			wantOrder: []string{"a"},
		},
		{
			name:      "everything fails",
			primary:   []string{"a", "b"},
			fallback:  []string{"c", "d"},
			failing:   []string{"a", "b", "c", "d"},
			wantErr:   true,
			wantOrder: []string{"a", "b", "c", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ps []*providertest.Scripted
			for _, id := range append(slices.Clone(tt.primary), tt.fallback...) {
				if slices.Contains(tt.failing, id) {
					ps = append(ps, providertest.Failing(id))
				} else {
					ps = append(ps, providertest.NewScripted(id))
				}
			}
			o := newTestOrchestrator(t, tt.primary, tt.fallback, providertest.NewResolver(ps...))

			res, err := o.CompleteWithFallback(context.Background(), testMessages, GenerationConfig{Temperature: 0.7, MaxTokens: 100})

			if tt.wantErr {
				var failed *AllProvidersFailedError
				if !errors.As(err, &failed) {
					t.Fatalf("CompleteWithFallback() error = %v, want *AllProvidersFailedError", err)
				}
				if !errors.Is(err, ErrAllProvidersFailed) {
					t.Error("error does not match ErrAllProvidersFailed")
				}
				if got := failed.Providers(); !slices.Equal(got, tt.wantOrder) {
					t.Errorf("failed providers = %v, want %v", got, tt.wantOrder)
				}
				for _, a := range failed.Attempts {
					if a.Outcome != OutcomeFailure || a.Reason == "" {
						t.Errorf("attempt %+v should be a failure with a reason", a)
					}
				}
				return
			}

			if err != nil {
				t.Fatalf("CompleteWithFallback() unexpected error: %v", err)
			}
			if res.Provider != tt.wantProvider || res.Pool != tt.wantPool {
				t.Errorf("served by %s/%s, want %s/%s", res.Provider, res.Pool, tt.wantProvider, tt.wantPool)
			}
			if got := attemptProviders(res.Attempts); !slices.Equal(got, tt.wantOrder) {
				t.Errorf("attempt order = %v, want %v", got, tt.wantOrder)
			}
			if res.Response.Content != "ok from "+tt.wantProvider {
				t.Errorf("content = %q", res.Response.Content)
			}
			if last := res.Attempts[len(res.Attempts)-1]; last.Outcome != OutcomeSuccess {
				t.Errorf("last attempt outcome = %s, want success", last.Outcome)
			}
		})
	}
}

func TestCompleteWithFallback_ShortCircuit(t *testing.T) {
	a := providertest.Failing("a")
	b := providertest.NewScripted("b")
	c := providertest.NewScripted("c")
	d := providertest.NewScripted("d")
	o := newTestOrchestrator(t, []string{"a", "b", "c", "d"}, nil, providertest.NewResolver(a, b, c, d))

	res, err := o.CompleteWithFallback(context.Background(), testMessages, GenerationConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Provider != "b" {
		t.Errorf("served by %s, want b", res.Provider)
	}

	total := a.Calls() + b.Calls() + c.Calls() + d.Calls()
	if total != 2 {
		t.Errorf("provider invocations = %d, want 2", total)
	}
	if c.Calls() != 0 || d.Calls() != 0 {
		t.Error("providers after the first success were invoked")
	}
}

func TestCompleteWithFallback_CursorPersists(t *testing.T) {
	a := providertest.NewScripted("a")
	b := providertest.NewScripted("b")
	c := providertest.NewScripted("c")
	o := newTestOrchestrator(t, []string{"a", "b", "c"}, nil, providertest.NewResolver(a, b, c))

	var served []string
	for i := 0; i < 6; i++ {
		res, err := o.CompleteWithFallback(context.Background(), testMessages, GenerationConfig{})
		if err != nil {
			t.Fatal(err)
		}
		served = append(served, res.Provider)
	}

	if want := []string{"a", "b", "c", "a", "b", "c"}; !slices.Equal(served, want) {
		t.Errorf("served sequence = %v, want %v", served, want)
	}
}

func TestCompleteWithFallback_FailedCallAdvancesCursorByPoolSize(t *testing.T) {
	o := newTestOrchestrator(t, []string{"a", "b", "c"}, nil, providertest.NewResolver(
		providertest.Failing("a"), providertest.Failing("b"), providertest.Failing("c"),
	))
	o.Rotator().NextPrimary()

	_, err := o.CompleteWithFallback(context.Background(), testMessages, GenerationConfig{})
	var failed *AllProvidersFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("error = %v", err)
	}
	if want := []string{"b", "c", "a"}; !slices.Equal(failed.Providers(), want) {
		t.Errorf("attempt order = %v, want %v", failed.Providers(), want)
	}
	if o.Rotator().PrimaryCursor() != 1 {
		t.Errorf("cursor = %d, want 1", o.Rotator().PrimaryCursor())
	}
}

func TestCompleteWithFallback_FallbackFixedOrder(t *testing.T) {
	r, err := NewRotator([]string{"a"}, []string{"x", "y", "z"}, WithFallbackCursor(2))
	if err != nil {
		t.Fatal(err)
	}
	resolver := providertest.NewResolver(
		providertest.Failing("a"),
		providertest.Failing("x"),
		providertest.Failing("y"),
		providertest.Failing("z"),
	)
	o, err := NewOrchestrator(r, resolver)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		_, err := o.CompleteWithFallback(context.Background(), testMessages, GenerationConfig{})
		var failed *AllProvidersFailedError
		if !errors.As(err, &failed) {
			t.Fatalf("error = %v", err)
		}
		if want := []string{"a", "x", "y", "z"}; !slices.Equal(failed.Providers(), want) {
			t.Errorf("call %d: attempt order = %v, want %v", i, failed.Providers(), want)
		}
		for _, a := range failed.Attempts[1:] {
			if a.Pool != PoolFallback {
				t.Errorf("attempt %s pool = %s, want fallback", a.Provider, a.Pool)
			}
		}
	}
}

func TestCompleteWithFallback_AggregateMessage(t *testing.T) {
	o := newTestOrchestrator(t, []string{"a", "b"}, []string{"c"}, providertest.NewResolver(
		providertest.NewScripted("a", providertest.Fail("boom")),
		providertest.NewScripted("b", providertest.Fail("quota")),
		providertest.NewScripted("c", providertest.Fail("down")),
	))

	_, err := o.CompleteWithFallback(context.Background(), testMessages, GenerationConfig{})
	if err == nil {
		t.Fatal("expected error")
	}
	want := "all providers failed: a: boom; b: quota; c: down"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestCompleteWithFallback_AttemptFailureModes(t *testing.T) {
	tests := []struct {
		name       string
		outcome    providertest.Outcome
		register   bool
		timeout    time.Duration
		wantReason string
		wantIs     error
	}{
		{
			name:       "unknown provider",
			register:   false,
			wantReason: "not found",
		},
		{
			name:       "empty response",
			outcome:    providertest.Succeed(""),
			register:   true,
			wantIs:     ErrEmptyResponse,
			wantReason: "empty response",
		},
		{
			name:       "whitespace response",
			outcome:    providertest.Succeed("  \n\t"),
			register:   true,
			wantIs:     ErrEmptyResponse,
			wantReason: "empty response",
		},
		{
			name:       "panic",
			outcome:    providertest.Outcome{Panic: true},
			register:   true,
			wantReason: "provider panicked",
		},
		{
			name:       "attempt timeout",
			outcome:    providertest.Outcome{Content: "late", Delay: time.Second},
			register:   true,
			timeout:    20 * time.Millisecond,
			wantIs:     context.DeadlineExceeded,
			wantReason: "deadline exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := providertest.Resolver{}
			if tt.register {
				resolver["a"] = providertest.NewScripted("a", tt.outcome)
			}
			resolver["b"] = providertest.NewScripted("b")

			o := newTestOrchestrator(t, []string{"a"}, []string{"b"}, resolver, WithAttemptTimeout(tt.timeout))

			res, err := o.CompleteWithFallback(context.Background(), testMessages, GenerationConfig{})
			if err != nil {
				t.Fatalf("CompleteWithFallback() error = %v, want fallback success", err)
			}
			if res.Provider != "b" {
				t.Fatalf("served by %s, want b", res.Provider)
			}

			first := res.Attempts[0]
			if first.Outcome != OutcomeFailure {
				t.Fatalf("first attempt outcome = %s", first.Outcome)
			}
			if !strings.Contains(first.Reason, tt.wantReason) {
				t.Errorf("reason = %q, want it to contain %q", first.Reason, tt.wantReason)
			}
			if tt.wantIs != nil && !errors.Is(first.Err, tt.wantIs) {
				t.Errorf("attempt error = %v, want %v", first.Err, tt.wantIs)
			}
		})
	}
}

func TestCompleteWithFallback_CancelledContext(t *testing.T) {
	a := providertest.NewScripted("a")
	b := providertest.NewScripted("b")
	c := providertest.NewScripted("c")
	o := newTestOrchestrator(t, []string{"a", "b"}, []string{"c"}, providertest.NewResolver(a, b, c))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.CompleteWithFallback(ctx, testMessages, GenerationConfig{})
	var failed *AllProvidersFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("error = %v, want *AllProvidersFailedError", err)
	}
	if len(failed.Attempts) != 3 {
		t.Errorf("attempts = %d, want 3", len(failed.Attempts))
	}
	for _, at := range failed.Attempts {
		if !errors.Is(at.Err, context.Canceled) {
			t.Errorf("attempt %s error = %v, want context.Canceled", at.Provider, at.Err)
		}
	}
	if a.Calls()+b.Calls()+c.Calls() != 0 {
		t.Error("providers were called with a cancelled context")
	}
	// The primary draws still happened.
	if o.Rotator().PrimaryCursor() != 0 {
		t.Errorf("cursor = %d, want 0 after two draws over two members", o.Rotator().PrimaryCursor())
	}
}

func TestCompleteWithFallback_RequestShape(t *testing.T) {
	tests := []struct {
		name      string
		opts      []Option
		gen       GenerationConfig
		wantModel string
	}{
		{
			name:      "target model overrides request",
			gen:       GenerationConfig{Model: "claude-3", Temperature: 0.2, MaxTokens: 50, Stream: true},
			wantModel: "gpt-4o",
		},
		{
			name:      "custom target model",
			opts:      []Option{WithTargetModel("llama-3")},
			gen:       GenerationConfig{Model: "claude-3", Temperature: 0.2, MaxTokens: 50},
			wantModel: "llama-3",
		},
		{
			name:      "honor request model",
			opts:      []Option{WithHonorRequestModel(true)},
			gen:       GenerationConfig{Model: "claude-3", Temperature: 0.2, MaxTokens: 50},
			wantModel: "claude-3",
		},
		{
			name:      "honor request model without one",
			opts:      []Option{WithHonorRequestModel(true)},
			gen:       GenerationConfig{Temperature: 0.2, MaxTokens: 50},
			wantModel: "gpt-4o",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := providertest.NewScripted("a")
			o := newTestOrchestrator(t, []string{"a"}, nil, providertest.NewResolver(p), tt.opts...)

			res, err := o.CompleteWithFallback(context.Background(), testMessages, tt.gen)
			if err != nil {
				t.Fatal(err)
			}

			req := p.LastRequest()
			if req.Model != tt.wantModel {
				t.Errorf("model = %q, want %q", req.Model, tt.wantModel)
			}
			if res.Model != tt.wantModel {
				t.Errorf("result model = %q, want %q", res.Model, tt.wantModel)
			}
			if req.Stream {
				t.Error("stream must be false")
			}
			if req.Temperature != tt.gen.Temperature || req.MaxTokens != tt.gen.MaxTokens {
				t.Errorf("sampling = (%v, %d), want (%v, %d)", req.Temperature, req.MaxTokens, tt.gen.Temperature, tt.gen.MaxTokens)
			}
			if len(req.Messages) != len(testMessages) {
				t.Errorf("messages = %d, want %d", len(req.Messages), len(testMessages))
			}
		})
	}
}

func TestCompleteWithFallback_ObserverAndStats(t *testing.T) {
	obs := &recordingObserver{}
	o := newTestOrchestrator(t, []string{"a", "b"}, []string{"c"}, providertest.NewResolver(
		providertest.Failing("a"),
		providertest.Failing("b"),
		providertest.NewScripted("c"),
	), WithObserver(obs))

	if _, err := o.CompleteWithFallback(context.Background(), testMessages, GenerationConfig{}); err != nil {
		t.Fatal(err)
	}

	if len(obs.attempts) != 3 {
		t.Errorf("observed attempts = %d, want 3", len(obs.attempts))
	}
	if len(obs.reports) != 1 {
		t.Fatalf("observed reports = %d, want 1", len(obs.reports))
	}
	rep := obs.reports[0]
	if rep.Outcome != OutcomeSuccess || rep.Provider != "c" || rep.Pool != PoolFallback {
		t.Errorf("report = %+v", rep)
	}

	snap := o.Stats().Snapshot()
	if snap.Orchestrations != 1 || snap.FallbackServed != 1 || snap.PrimaryServed != 0 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Failed["a"] != 1 || snap.Failed["b"] != 1 || snap.Succeeded["c"] != 1 {
		t.Errorf("per-provider counts = %v / %v", snap.Succeeded, snap.Failed)
	}
}

func TestCompleteWithFallback_ConcurrentCalls(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	var ps []*providertest.Scripted
	for _, id := range ids {
		ps = append(ps, providertest.NewScripted(id))
	}
	o := newTestOrchestrator(t, ids, nil, providertest.NewResolver(ps...))

	const calls = 400
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := o.CompleteWithFallback(context.Background(), testMessages, GenerationConfig{}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	for _, p := range ps {
		if p.Calls() != calls/len(ids) {
			t.Errorf("provider %s served %d calls, want %d", p.GetName(), p.Calls(), calls/len(ids))
		}
	}
}

// gatedProvider blocks its first completion until release is closed.
type gatedProvider struct {
	*providertest.Scripted
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedProvider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.Scripted.SendCompletion(ctx, req)
}

func TestCompleteWithFallback_InterleavedCallsCoverPrimaryPool(t *testing.T) {
	a := &gatedProvider{
		Scripted: providertest.Failing("a"),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	b := providertest.NewScripted("b")
	o := newTestOrchestrator(t, []string{"a", "b"}, nil, providertest.Resolver{"a": a, "b": b})

	type outcome struct {
		res *Result
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		res, err := o.CompleteWithFallback(context.Background(), testMessages, GenerationConfig{})
		first <- outcome{res, err}
	}()
	<-a.entered

	// A second call served by b while the first is still waiting on a.
	res, err := o.CompleteWithFallback(context.Background(), testMessages, GenerationConfig{})
	if err != nil {
		t.Fatalf("second call error = %v", err)
	}
	if res.Provider != "b" {
		t.Fatalf("second call served by %s, want b", res.Provider)
	}

	close(a.release)
	out := <-first
	if out.err != nil {
		t.Fatalf("first call error = %v", out.err)
	}
	if got := attemptProviders(out.res.Attempts); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("first call attempts = %v, want [a b]", got)
	}
}

// ctxObserver records whether the context handed to ObserveAttempt was
// still live.
type ctxObserver struct {
	mu   sync.Mutex
	errs []error
}

func (c *ctxObserver) ObserveAttempt(ctx context.Context, _ Attempt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, ctx.Err())
}

func (c *ctxObserver) ObserveOrchestration(context.Context, Report) {}

func TestCompleteWithFallback_ObserverContextOutlivesAttemptTimeout(t *testing.T) {
	obs := &ctxObserver{}
	o := newTestOrchestrator(t, []string{"a", "b"}, nil,
		providertest.NewResolver(providertest.Failing("a"), providertest.NewScripted("b")),
		WithAttemptTimeout(time.Second),
		WithObserver(obs),
	)

	if _, err := o.CompleteWithFallback(context.Background(), testMessages, GenerationConfig{}); err != nil {
		t.Fatal(err)
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.errs) != 2 {
		t.Fatalf("observed %d attempts, want 2", len(obs.errs))
	}
	for i, err := range obs.errs {
		if err != nil {
			t.Errorf("attempt %d observed with done context: %v", i, err)
		}
	}
}
