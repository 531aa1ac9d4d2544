package handlers

import (
	"maps"
	"net/http"
	"sync/atomic"

	"mercator-hq/relay/pkg/processing"
	"mercator-hq/relay/pkg/proxy"
	"mercator-hq/relay/pkg/proxy/types"
)

// ModelsHandler serves GET /api/models. The catalog can be swapped at
// runtime when the configuration reloads.
type ModelsHandler struct {
	models      atomic.Pointer[map[string]string]
	processor   *processing.Processor
	targetModel string
}

// NewModelsHandler creates a models handler.
func NewModelsHandler(models map[string]string, processor *processing.Processor, targetModel string) *ModelsHandler {
	h := &ModelsHandler{processor: processor, targetModel: targetModel}
	h.SetModels(models)
	return h
}

// SetModels replaces the catalog.
func (h *ModelsHandler) SetModels(models map[string]string) {
	m := maps.Clone(models)
	if m == nil {
		m = map[string]string{}
	}
	h.models.Store(&m)
}

// ServeHTTP implements http.Handler.
func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		proxy.MethodNotAllowed(w, r, http.MethodGet)
		return
	}

	proxy.WriteJSONResponse(w, http.StatusOK, &types.ModelsResponse{
		Success:       true,
		Models:        *h.models.Load(),
		DefaultConfig: h.processor.Defaults(),
		TargetModel:   h.targetModel,
	})
}
