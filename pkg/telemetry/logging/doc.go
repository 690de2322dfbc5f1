// Package logging provides structured logging on top of log/slog.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - JSON and text output
//   - Configurable log levels (debug, info, warn, error)
//   - Request, file and tool fields taken from the context
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	ctx = logging.WithRequestID(ctx, id)
//	logger.InfoContext(ctx, "validated interview", "errors", 2)
//	// {"level":"INFO","msg":"validated interview","errors":2,"request_id":"..."}
//
// Slog exposes the same handler as a *slog.Logger so library packages can
// accept a plain *slog.Logger and still get the context fields.
package logging
