package main

import (
	"context"
	"os"
	"syscall"

	"github.com/demosdemon/skuwatch/internal/cli"
	"github.com/demosdemon/skuwatch/pkg/sigctx"
)

func main() {
	ctx, cancel := sigctx.CancelContextWithSignal(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, cli.NewPublishCommand(), os.Args[1:])
	cancel()
	os.Exit(code)
}
