package daemon

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const restartBackoff = 2 * time.Second

// supervise runs task until ctx is cancelled, restarting it after a fixed
// backoff whenever it returns early. The returned error is always the
// context's, so callers can tell shutdown from failure.
func supervise(ctx context.Context, log *zap.Logger, name string, task func(context.Context) error) error {
	for {
		err := task(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			log.Error("background task exited, restarting",
				zap.String("task", name), zap.Error(err))
		} else {
			log.Warn("background task returned, restarting", zap.String("task", name))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(restartBackoff):
		}
	}
}
