// ABOUTME: Entry point for the resonate-codec command line tool
// ABOUTME: Wires OS signals into the command context and runs cobra
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Resonate-Protocol/resonate-codec/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.RootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
