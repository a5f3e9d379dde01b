package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// runEvery calls fn every interval until done is closed. fn runs once
// immediately when immediate is set.
func runEvery(interval time.Duration, done <-chan struct{}, immediate bool, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if immediate {
		fn()
	}

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			fn()
		}
	}
}

func runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
