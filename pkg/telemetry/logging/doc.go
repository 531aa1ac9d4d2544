// Package logging builds the process logger on top of log/slog.
//
// # Overview
//
// New returns a *slog.Logger whose handler chain:
//   - writes JSON or text to the configured writer
//   - masks API keys, bearer tokens and passwords in attribute values
//   - adds request_id, provider and trace ids carried by the context
//
// The level is held in a slog.LevelVar so it can be changed while the
// process runs, for example on configuration reload.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:         "info",
//	    Format:        "json",
//	    RedactSecrets: true,
//	})
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger.Logger)
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	slog.InfoContext(ctx, "completion served", "provider", "pollinations")
//	// {"level":"INFO","msg":"completion served","provider":"pollinations","request_id":"req-123"}
//
// Packages derive component loggers with
// slog.Default().With("component", "routing.orchestrator").
package logging
