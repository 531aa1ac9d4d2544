package routing

import (
	"context"
	"slices"
	"testing"

	"mercator-hq/relay/pkg/config"
)

func TestGenerationFromConfig(t *testing.T) {
	temp := 0.0
	topP := 0.9

	got := GenerationFromConfig(config.GenerationConfig{
		Temperature:      &temp,
		MaxTokens:        250,
		TopP:             &topP,
		FrequencyPenalty: 0.5,
		Stop:             []string{"END"},
		Model:            "gpt-4o",
	})

	if got.Temperature != 0 || got.TopP != 0.9 || got.MaxTokens != 250 {
		t.Errorf("sampling = %+v", got)
	}
	if got.FrequencyPenalty != 0.5 || got.PresencePenalty != 0 {
		t.Errorf("penalties = (%v, %v)", got.FrequencyPenalty, got.PresencePenalty)
	}
	if !slices.Equal(got.Stop, []string{"END"}) || got.Model != "gpt-4o" || got.Stream {
		t.Errorf("generation = %+v", got)
	}

	unset := GenerationFromConfig(config.GenerationConfig{})
	if unset.Temperature != 0 || unset.TopP != 0 {
		t.Errorf("nil pointers should map to zero, got %+v", unset)
	}
}

func TestObservers_FanOut(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}
	obs := Observers{a, b}

	obs.ObserveAttempt(context.Background(), Attempt{Provider: "x"})
	obs.ObserveOrchestration(context.Background(), Report{Outcome: OutcomeSuccess})

	for i, r := range []*recordingObserver{a, b} {
		if len(r.attempts) != 1 || len(r.reports) != 1 {
			t.Errorf("observer %d got %d attempts and %d reports", i, len(r.attempts), len(r.reports))
		}
	}
}
