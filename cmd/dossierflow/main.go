package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/ormvat/dossierflow/internal/cli"
	"github.com/ormvat/dossierflow/internal/config"
	"github.com/ormvat/dossierflow/internal/flagx"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	cfg := config.LoadConfig()
	args := flagx.StripArgs(os.Args[1:], config.Flags)

	code := cli.Run(ctx, cfg, args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
