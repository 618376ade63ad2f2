package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joseph-ayodele/techtime/cmd/techtime/commands"
	"github.com/joseph-ayodele/techtime/internal/common"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Root().Run(ctx, os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, common.UserMessage(err))
		stop()
		os.Exit(1)
	}
}
