package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mercator-hq/relay/internal/providertest"
	"mercator-hq/relay/pkg/providerfactory"
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/proxy/types"
)

type staticHealth providerfactory.HealthSummary

func (s staticHealth) GetHealthSummary() providerfactory.HealthSummary {
	return providerfactory.HealthSummary(s)
}

func getStatus(t *testing.T, h http.Handler) types.StatusResponse {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/providers/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	return decode[types.StatusResponse](t, w)
}

func TestStatusHandler(t *testing.T) {
	g := newTestGateway(t, []string{"a", "b"}, []string{"c"},
		providertest.NewScripted("a"), providertest.NewScripted("b"), providertest.NewScripted("c"))
	health := staticHealth{
		Total: 2, Healthy: 1, Unhealthy: 1,
		Details: map[string]providers.ProviderHealth{
			"a": {IsHealthy: true},
			"b": {IsHealthy: false, ConsecutiveFailures: 3, LastError: errors.New("connection refused")},
		},
	}
	h := NewStatusHandler(g.orchestrator, g.dispatcher, health)

	first := getStatus(t, h)
	second := getStatus(t, h)

	if first.Current != "a" || second.Current != "a" {
		t.Errorf("current = %q then %q, want a twice", first.Current, second.Current)
	}
	if len(first.Primary) != 2 || len(first.Fallback) != 1 {
		t.Errorf("pools = %v / %v", first.Primary, first.Fallback)
	}
	if first.Workers != 4 || first.InFlight != 0 {
		t.Errorf("workers = %d, in_flight = %d", first.Workers, first.InFlight)
	}
	if b := first.Health["b"]; b.Healthy || b.ConsecutiveFailures != 3 || b.LastError != "connection refused" {
		t.Errorf("health[b] = %+v", b)
	}

	postChat(t, g.chat(), helloBody)

	after := getStatus(t, h)
	if after.Current != "b" {
		t.Errorf("current after one request = %q, want b", after.Current)
	}
	if after.Stats.Orchestrations != 1 {
		t.Errorf("stats.orchestrations = %d, want 1", after.Stats.Orchestrations)
	}
}

func TestStatusHandler_EmptyFallback(t *testing.T) {
	g := newTestGateway(t, []string{"a"}, nil, providertest.NewScripted("a"))

	got := getStatus(t, NewStatusHandler(g.orchestrator, nil, nil))
	if got.Fallback == nil || len(got.Fallback) != 0 {
		t.Errorf("fallback = %#v, want empty list", got.Fallback)
	}
	if got.Health == nil {
		t.Error("health = nil, want empty map")
	}
}

func TestModelsHandler(t *testing.T) {
	g := newTestGateway(t, []string{"a"}, nil, providertest.NewScripted("a"))
	models := map[string]string{"gpt-4o": "GPT-4o"}
	h := NewModelsHandler(models, g.processor, "gpt-4o")
	models["mutated"] = "x"

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[types.ModelsResponse](t, w)
	if !resp.Success || len(resp.Models) != 1 || resp.TargetModel != "gpt-4o" {
		t.Errorf("response = %+v", resp)
	}
	if resp.DefaultConfig.MaxTokens != 500 || resp.DefaultConfig.Temperature != 0.7 {
		t.Errorf("default_config = %+v", resp.DefaultConfig)
	}

	h.SetModels(nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	if resp := decode[types.ModelsResponse](t, w); resp.Models == nil || len(resp.Models) != 0 {
		t.Errorf("models after SetModels(nil) = %#v", resp.Models)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/models", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d", w.Code)
	}
}
