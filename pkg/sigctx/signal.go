package sigctx

import (
	"context"
	"os"
	"os/signal"
)

// CancelContextWithSignal returns a context that is cancelled when any of
// signals is delivered or the parent is done.
func CancelContextWithSignal(ctx context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	if len(signals) == 0 {
		return ctx, cancel
	}

	ch := make(chan os.Signal, len(signals))
	signal.Notify(ch, signals...)

	go func() {
		select {
		case <-ctx.Done():
		case <-ch:
		}

		cancel()
		signal.Stop(ch)
	}()

	return ctx, cancel
}
