package handlers

import (
	"net/http"

	"mercator-hq/relay/pkg/proxy"
	"mercator-hq/relay/pkg/proxy/types"
	"mercator-hq/relay/pkg/routing"
)

// StatusHandler serves GET /api/providers/status.
type StatusHandler struct {
	orchestrator *routing.Orchestrator
	dispatcher   *routing.Dispatcher
	health       HealthReporter
}

// NewStatusHandler creates a status handler. health may be nil, in which
// case the health map is empty.
func NewStatusHandler(orchestrator *routing.Orchestrator, dispatcher *routing.Dispatcher, health HealthReporter) *StatusHandler {
	return &StatusHandler{orchestrator: orchestrator, dispatcher: dispatcher, health: health}
}

// ServeHTTP implements http.Handler. Reading the status never advances
// the rotation.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		proxy.MethodNotAllowed(w, r, http.MethodGet)
		return
	}

	rot := h.orchestrator.Rotator()
	resp := &types.StatusResponse{
		Primary:  rot.Primary(),
		Fallback: rot.Fallback(),
		Current:  rot.PeekPrimary(),
		Health:   map[string]types.ProviderHealth{},
		Stats:    h.orchestrator.Stats().Snapshot(),
	}
	if resp.Fallback == nil {
		resp.Fallback = []string{}
	}
	if h.dispatcher != nil {
		resp.InFlight = h.dispatcher.InFlight()
		resp.Workers = h.dispatcher.Size()
	}

	if h.health != nil {
		for name, ph := range h.health.GetHealthSummary().Details {
			entry := types.ProviderHealth{
				Healthy:             ph.IsHealthy,
				ConsecutiveFailures: ph.ConsecutiveFailures,
			}
			if ph.LastError != nil {
				entry.LastError = ph.LastError.Error()
			}
			resp.Health[name] = entry
		}
	}

	proxy.WriteJSONResponse(w, http.StatusOK, resp)
}
