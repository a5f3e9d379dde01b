package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/scripty/hub-server-go/internal/service"
)

type StatsSource interface {
	Totals(ctx context.Context) (service.StatsTotals, error)
}

type StatsPublisher interface {
	Report(ctx context.Context, totals service.StatsTotals) error
}

// StatsReportJob periodically publishes hub-wide server and user totals.
type StatsReportJob struct {
	source    StatsSource
	publisher StatsPublisher
	interval  time.Duration
	done      chan struct{}
}

func NewStatsReportJob(source StatsSource, publisher StatsPublisher, interval time.Duration) *StatsReportJob {
	return &StatsReportJob{
		source:    source,
		publisher: publisher,
		interval:  interval,
		done:      make(chan struct{}),
	}
}

func (j *StatsReportJob) Start() {
	// Clusters report counts shortly after connecting; the first report waits
	// a full interval for them.
	go runEvery(j.interval, j.done, false, j.report)
	log.Info().Dur("interval", j.interval).Msg("stats report job started")
}

func (j *StatsReportJob) Stop() {
	close(j.done)
	log.Info().Msg("stats report job stopped")
}

func (j *StatsReportJob) report() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout())
	defer cancel()

	totals, err := j.source.Totals(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to read stats totals")
		return
	}
	if err := j.publisher.Report(ctx, totals); err != nil {
		log.Error().Err(err).Msg("failed to publish stats")
	}
}

func (j *StatsReportJob) timeout() time.Duration {
	return min(j.interval, 30*time.Second)
}
