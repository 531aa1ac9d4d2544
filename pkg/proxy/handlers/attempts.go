package handlers

import (
	"net/http"
	"strconv"
	"time"

	"mercator-hq/relay/pkg/audit"
	"mercator-hq/relay/pkg/proxy"
	"mercator-hq/relay/pkg/proxy/types"
)

// AttemptsResponse is the body of GET /api/attempts.
type AttemptsResponse struct {
	Success bool            `json:"success"`
	Records []*audit.Record `json:"records"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// SummaryResponse is the body of GET /api/attempts/summary.
type SummaryResponse struct {
	Success   bool                    `json:"success"`
	Since     *time.Time              `json:"since,omitempty"`
	Providers []audit.ProviderSummary `json:"providers"`
}

// AttemptsHandler serves the recorded orchestration log.
type AttemptsHandler struct {
	store AttemptReader
}

// NewAttemptsHandler creates an attempts handler.
func NewAttemptsHandler(store AttemptReader) *AttemptsHandler {
	return &AttemptsHandler{store: store}
}

// ServeHTTP serves GET /api/attempts. Supported query parameters are
// request_id, provider, outcome, since, until (RFC 3339), limit and offset.
func (h *AttemptsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		proxy.MethodNotAllowed(w, r, http.MethodGet)
		return
	}

	q, err := parseQuery(r)
	if err != nil {
		proxy.WriteError(w, r, err)
		return
	}

	ctx := r.Context()
	records, err := h.store.Query(ctx, &q)
	if err != nil {
		proxy.WriteError(w, r, err)
		return
	}
	total, err := h.store.Count(ctx, &q)
	if err != nil {
		proxy.WriteError(w, r, err)
		return
	}
	if records == nil {
		records = []*audit.Record{}
	}

	proxy.WriteJSONResponse(w, http.StatusOK, &AttemptsResponse{
		Success: true,
		Records: records,
		Total:   total,
		Limit:   q.Limit,
		Offset:  q.Offset,
	})
}

// Summary serves GET /api/attempts/summary with an optional since bound.
func (h *AttemptsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		proxy.MethodNotAllowed(w, r, http.MethodGet)
		return
	}

	since, err := parseTime(r, "since")
	if err != nil {
		proxy.WriteError(w, r, err)
		return
	}

	var from time.Time
	if since != nil {
		from = *since
	}
	summary, err := h.store.ProviderSummary(r.Context(), from)
	if err != nil {
		proxy.WriteError(w, r, err)
		return
	}
	if summary == nil {
		summary = []audit.ProviderSummary{}
	}

	proxy.WriteJSONResponse(w, http.StatusOK, &SummaryResponse{
		Success:   true,
		Since:     since,
		Providers: summary,
	})
}

func parseQuery(r *http.Request) (audit.Query, error) {
	v := r.URL.Query()
	q := audit.Query{
		RequestID: v.Get("request_id"),
		Provider:  v.Get("provider"),
		Outcome:   v.Get("outcome"),
	}

	var err error
	if q.Since, err = parseTime(r, "since"); err != nil {
		return q, err
	}
	if q.Until, err = parseTime(r, "until"); err != nil {
		return q, err
	}
	if q.Limit, err = parseInt(r, "limit"); err != nil {
		return q, err
	}
	if q.Offset, err = parseInt(r, "offset"); err != nil {
		return q, err
	}

	normalized, err := audit.Normalize(&q)
	if err != nil {
		return q, &proxy.RequestError{Code: types.CodeInvalidValue, Message: err.Error(), Err: err}
	}
	return normalized, nil
}

func parseTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, &proxy.RequestError{
			Code:    types.CodeInvalidValue,
			Message: name + " must be an RFC 3339 timestamp",
			Err:     err,
		}
	}
	return &t, nil
}

func parseInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &proxy.RequestError{
			Code:    types.CodeInvalidValue,
			Message: name + " must be an integer",
			Err:     err,
		}
	}
	return n, nil
}
