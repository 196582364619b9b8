// SPDX-License-Identifier: BSD-3-Clause

// Command coolerd-hidd runs the HID Daemon as an isolated process, applying
// sysfs writes for the PWM-only fan controllers the Hwmon Repository
// cannot safely write to from an unprivileged process.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/coolerd/coolerd/service/hidd"
)

func main() {
	daemon := hidd.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := daemon.Run(ctx, nil); err != nil && err != context.Canceled {
		slog.Error("hidd exited with error", "error", err)
		os.Exit(1)
	}
}
