package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StartDailyFlush periodically invokes flush, which is expected to run the
// coordinator with force-send and record the result. It is the concrete form
// of the external periodic trigger the daily send mode relies on. Blocks
// until ctx is cancelled.
func StartDailyFlush(ctx context.Context, interval time.Duration, flush func(context.Context) error) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := flush(ctx); err != nil {
				log.Error().Err(err).Msg("daily alert flush failed")
			}
		}
	}
}
