package routing

import (
	"context"
	"time"

	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/providers"
)

// Pool names the pool an attempt was drawn from.
type Pool string

const (
	PoolPrimary  Pool = "primary"
	PoolFallback Pool = "fallback"
)

// Outcome is the result of an attempt or an orchestration.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// GenerationConfig is the fully populated sampling configuration of one
// request.
type GenerationConfig struct {
	Temperature      float64  `json:"temperature"`
	MaxTokens        int      `json:"max_tokens"`
	TopP             float64  `json:"top_p"`
	FrequencyPenalty float64  `json:"frequency_penalty"`
	PresencePenalty  float64  `json:"presence_penalty"`
	Stop             []string `json:"stop"`
	Model            string   `json:"model"`
	Stream           bool     `json:"stream"`
}

// GenerationFromConfig builds the default GenerationConfig from the
// configuration file. cfg must have had defaults applied.
func GenerationFromConfig(cfg config.GenerationConfig) GenerationConfig {
	g := GenerationConfig{
		MaxTokens:        cfg.MaxTokens,
		FrequencyPenalty: cfg.FrequencyPenalty,
		PresencePenalty:  cfg.PresencePenalty,
		Stop:             cfg.Stop,
		Model:            cfg.Model,
	}
	if cfg.Temperature != nil {
		g.Temperature = *cfg.Temperature
	}
	if cfg.TopP != nil {
		g.TopP = *cfg.TopP
	}
	return g
}

// Attempt records one call to one provider.
type Attempt struct {
	Provider string        `json:"provider"`
	Pool     Pool          `json:"pool"`
	Outcome  Outcome       `json:"outcome"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration"`

	// Err is the failure as returned by the provider.
	Err error `json:"-"`
}

// Result is a successful orchestration.
type Result struct {
	Response *providers.CompletionResponse

	// Provider served the request from Pool.
	Provider string
	Pool     Pool

	// Model is the model id sent upstream.
	Model string

	// Attempts lists every attempt in order; the last one succeeded.
	Attempts []Attempt

	Duration time.Duration
}

// Report summarizes a finished orchestration for observers.
type Report struct {
	RequestID string
	StartedAt time.Time
	Duration  time.Duration
	Outcome   Outcome
	Provider  string
	Pool      Pool
	Model     string
	Attempts  []Attempt
}

// ProviderResolver looks up live providers by identifier.
type ProviderResolver interface {
	GetProvider(name string) (providers.Provider, error)
}

// Observer receives attempt and orchestration events. Implementations must
// not block.
type Observer interface {
	ObserveAttempt(ctx context.Context, a Attempt)
	ObserveOrchestration(ctx context.Context, r Report)
}

// Observers fans events out to several observers.
type Observers []Observer

func (obs Observers) ObserveAttempt(ctx context.Context, a Attempt) {
	for _, o := range obs {
		o.ObserveAttempt(ctx, a)
	}
}

func (obs Observers) ObserveOrchestration(ctx context.Context, r Report) {
	for _, o := range obs {
		o.ObserveOrchestration(ctx, r)
	}
}
