// Package logging provides structured logging with field redaction.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - Structured logging with JSON and text formats
//   - Field-name redaction for sensitive values (tokens, passwords)
//   - Context-aware logging with decision metadata
//   - Configurable log levels (debug, info, warn, error)
//
// # Usage
//
//	// Create a logger
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	// Log structured data
//	logger.Info("decision complete",
//	    "decision_id", "d-123",
//	    "token", "gh-abc123",  // Automatically redacted
//	    "duration_ms", 3,
//	)
//
//	// Create context-aware logger
//	ctx := logging.WithDecisionID(ctx, "d-123")
//	ctxLogger := logger.WithContext(ctx)
//	ctxLogger.Info("dispatching")  // Includes decision_id automatically
//
// # Redaction
//
// Redaction is keyed on field names, not values. Built-in sensitive names
// (token, password, passphrase, secret, authorization, api_key) are always
// masked; telemetry.logging.redact_fields adds more. Matching is
// case-insensitive and masked values render as "[REDACTED]".
package logging
