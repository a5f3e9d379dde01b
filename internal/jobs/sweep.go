package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/scripty/hub-server-go/internal/config"
)

// Sweeper expires overdue pending requests, returning how many it expired.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// SweepJob periodically times out pending requests whose deadline passed.
type SweepJob struct {
	tracker  Sweeper
	interval time.Duration
	done     chan struct{}
}

func NewSweepJob(tracker Sweeper, interval time.Duration) *SweepJob {
	return &SweepJob{
		tracker:  tracker,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *SweepJob) Start() {
	go runEvery(j.interval, j.done, true, j.sweep)
	log.Info().Dur("interval", j.interval).Msg("pending sweep job started")
}

func (j *SweepJob) Stop() {
	close(j.done)
	log.Info().Msg("pending sweep job stopped")
}

func (j *SweepJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), config.SweepJobTimeout)
	defer cancel()

	runCleanup(ctx, "expired pending requests", j.tracker.Sweep)
}
