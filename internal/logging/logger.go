// Package logging is the structured logger the dossierflow components are
// built with. Components receive a Logger in their constructor and tag it
// with With("module", name).
package logging

import "context"

// Logger writes leveled messages followed by alternating key and value
// arguments:
//
//	logger.Info(ctx, "phase changed", "dossier_id", id, "from", 1, "to", 2)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a Logger that adds args to every message.
	With(args ...any) Logger
}
