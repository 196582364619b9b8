// SPDX-License-Identifier: BSD-3-Clause

// Command coolerd is the main daemon: it discovers cooling hardware, polls
// status, evaluates speed profiles, and serves the GUI-facing IPC socket.
// The Cooling-lib Backend and HID Daemon run as separate, privilege-isolated
// processes (see cmd/coolerd-liqctld and cmd/coolerd-hidd).
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coolerd/coolerd/service/orchestrator"
)

const shutdownGrace = 5 * time.Second

func main() {
	orch := orchestrator.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
	}()

	err := orch.Run(ctx, nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer shutdownCancel()
	if shutdownErr := orch.Shutdown(shutdownCtx); shutdownErr != nil {
		slog.Error("failed to reset devices to defaults on shutdown", "error", shutdownErr)
	}

	if err != nil && err != context.Canceled {
		slog.Error("orchestrator exited with error", "error", err)
		os.Exit(1)
	}
}
