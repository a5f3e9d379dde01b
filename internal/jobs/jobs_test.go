package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scripty/hub-server-go/internal/service"
)

type countingSweeper struct {
	calls atomic.Int64
	err   error
}

func (s *countingSweeper) Sweep(ctx context.Context) (int64, error) {
	s.calls.Add(1)
	return 3, s.err
}

func TestSweepJob(t *testing.T) {
	t.Run("creates job with correct interval", func(t *testing.T) {
		job := NewSweepJob(nil, 5*time.Second)

		assert.NotNil(t, job)
		assert.Equal(t, 5*time.Second, job.interval)
	})

	t.Run("sweeps on start and every tick", func(t *testing.T) {
		sweeper := &countingSweeper{}
		job := NewSweepJob(sweeper, 10*time.Millisecond)

		job.Start()
		require.Eventually(t, func() bool { return sweeper.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
		job.Stop()
	})

	t.Run("keeps running after a failed sweep", func(t *testing.T) {
		sweeper := &countingSweeper{err: errors.New("boom")}
		job := NewSweepJob(sweeper, 10*time.Millisecond)

		job.Start()
		require.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
		job.Stop()
	})

	t.Run("runs once immediately", func(t *testing.T) {
		sweeper := &countingSweeper{}
		job := NewSweepJob(sweeper, time.Hour)

		job.Start()
		require.Eventually(t, func() bool { return sweeper.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
		job.Stop()
	})
}

type fakeSource struct {
	totals service.StatsTotals
	err    error
}

func (s *fakeSource) Totals(ctx context.Context) (service.StatsTotals, error) {
	return s.totals, s.err
}

type fakePublisher struct {
	mu      sync.Mutex
	reports []service.StatsTotals
}

func (p *fakePublisher) Report(ctx context.Context, totals service.StatsTotals) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, totals)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.reports)
}

func TestStatsReportJob(t *testing.T) {
	t.Run("publishes totals each interval", func(t *testing.T) {
		totals := service.StatsTotals{Servers: 2300, Users: 50000, Clusters: 2}
		publisher := &fakePublisher{}
		job := NewStatsReportJob(&fakeSource{totals: totals}, publisher, 10*time.Millisecond)

		job.Start()
		require.Eventually(t, func() bool { return publisher.count() >= 2 }, time.Second, 5*time.Millisecond)
		job.Stop()

		publisher.mu.Lock()
		defer publisher.mu.Unlock()
		assert.Equal(t, totals, publisher.reports[0])
	})

	t.Run("does not report at start", func(t *testing.T) {
		publisher := &fakePublisher{}
		job := NewStatsReportJob(&fakeSource{}, publisher, time.Hour)

		job.Start()
		time.Sleep(20 * time.Millisecond)
		job.Stop()

		assert.Equal(t, 0, publisher.count())
	})

	t.Run("skips publishing when totals fail", func(t *testing.T) {
		publisher := &fakePublisher{}
		job := NewStatsReportJob(&fakeSource{err: errors.New("redis down")}, publisher, time.Hour)

		job.report()

		assert.Equal(t, 0, publisher.count())
	})
}
