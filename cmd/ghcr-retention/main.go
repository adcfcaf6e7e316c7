package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sethvargo/go-githubactions"

	"github.com/ghcr-retention/ghcr-retention/pkg/cli"
	"github.com/ghcr-retention/ghcr-retention/pkg/report"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := cli.NewRootCmd().ExecuteContext(ctx)

	stop()

	if err != nil {
		if report.InActions() {
			report.Fail(githubactions.New(), err)
		}

		os.Exit(1)
	}
}
