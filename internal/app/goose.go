package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ormvat/dossierflow/internal/logging"
	"github.com/pressly/goose/v3"
)

// gooseLogger routes goose output through the application logger so that
// command output on stdout stays machine readable.
type gooseLogger struct {
	logger logging.Logger
}

func setGooseLogger(l logging.Logger) {
	goose.SetLogger(&gooseLogger{logger: l.With("module", "migrations")})
}

func (g *gooseLogger) Printf(format string, v ...any) {
	g.logger.Debug(context.Background(), strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (g *gooseLogger) Fatalf(format string, v ...any) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	g.logger.Error(context.Background(), msg)
	panic(msg)
}
