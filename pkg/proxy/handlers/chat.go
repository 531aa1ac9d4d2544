package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/relay/pkg/processing"
	"mercator-hq/relay/pkg/proxy"
	"mercator-hq/relay/pkg/routing"
	"mercator-hq/relay/pkg/telemetry/logging"
)

// ChatHandler serves POST /api/chat.
type ChatHandler struct {
	completer    Completer
	admitter     Admitter
	processor    *processing.Processor
	maxBodyBytes int64
	logger       *slog.Logger
}

// NewChatHandler creates a chat handler. A non-positive maxBodyBytes uses
// proxy.DefaultMaxBodyBytes.
func NewChatHandler(completer Completer, admitter Admitter, processor *processing.Processor, maxBodyBytes int64) *ChatHandler {
	return &ChatHandler{
		completer:    completer,
		admitter:     admitter,
		processor:    processor,
		maxBodyBytes: maxBodyBytes,
		logger:       slog.Default().With("component", "chat"),
	}
}

// ServeHTTP implements http.Handler.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := logging.GetRequestID(ctx)
	start := time.Now()

	if r.Method != http.MethodPost {
		proxy.MethodNotAllowed(w, r, http.MethodPost)
		return
	}

	chatReq, err := proxy.ParseChatRequest(r, h.maxBodyBytes)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to parse request", "request_id", requestID, "error", err)
		proxy.WriteError(w, r, err)
		return
	}

	prep, err := h.processor.PrepareRequest(chatReq)
	if err != nil {
		h.logger.WarnContext(ctx, "rejected chat request", "request_id", requestID, "error", err)
		proxy.WriteError(w, r, err)
		return
	}

	if prep.FunctionCall != nil {
		h.logger.InfoContext(ctx, "function call reply", "request_id", requestID, "function", prep.FunctionCall.Name)
		resp := proxy.FunctionCallResponse(prep.FunctionCall)
		resp.RequestID = requestID
		proxy.WriteJSONResponse(w, http.StatusOK, resp)
		return
	}

	h.logger.DebugContext(ctx, "processing chat request",
		"request_id", requestID,
		"messages", len(prep.Messages),
		"schema", prep.Schema != nil,
	)

	var (
		result *routing.Result
		reply  *processing.Reply
	)
	err = h.admitter.Do(ctx, func(ctx context.Context) error {
		res, err := h.completer.CompleteWithFallback(ctx, prep.Messages, prep.Generation)
		if err != nil {
			return err
		}
		rep, err := h.processor.ProcessResponse(prep, res.Response, res.Model)
		if err != nil {
			return err
		}
		result, reply = res, rep
		return nil
	})
	if err != nil {
		// A request that ran out of time reports the timeout, not the
		// provider failures it caused.
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, routing.ErrDispatcherBusy) {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		proxy.WriteError(w, r, err)
		return
	}

	resp := proxy.ChatResponse(result, reply)
	resp.RequestID = requestID

	h.logger.InfoContext(ctx, "chat request served",
		"request_id", requestID,
		"provider", result.Provider,
		"pool", result.Pool,
		"model", result.Model,
		"attempts", len(result.Attempts),
		"schema_validated", reply.SchemaValidated,
		"total_tokens", reply.Usage.TotalTokens,
		"total_latency_ms", time.Since(start).Milliseconds(),
	)

	proxy.WriteJSONResponse(w, http.StatusOK, resp)
}
