package main

import (
	"context"
	"log/slog"

	"erulicence/cmd/licences/commands"
	"erulicence/lib/osutil"
	"erulicence/lib/telemetry"
)

func main() {
	ctx, cancel := osutil.SignalContext(context.Background())
	defer cancel()

	tel, err := telemetry.SetupFromEnv(ctx, "licences")
	if err != nil {
		osutil.Fatal("failed to setup telemetry", err)
	}
	defer func() {
		err := tel.Shutdown(context.Background())
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	}()

	commands.ExecuteContext(ctx)
}
