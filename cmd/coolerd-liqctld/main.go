// SPDX-License-Identifier: BSD-3-Clause

// Command coolerd-liqctld runs the Cooling-lib Backend as an isolated
// process, speaking HTTP-over-Unix-socket JSON to the Hwmon and Cooling-lib
// repositories so direct device I/O never runs in the main daemon process.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/coolerd/coolerd/service/liqctld"
)

func main() {
	backend := liqctld.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := backend.Run(ctx, nil); err != nil && err != context.Canceled {
		slog.Error("liqctld exited with error", "error", err)
		os.Exit(1)
	}
}
