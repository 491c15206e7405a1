package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DecayWorker re-derives every idea's trend score from its age on a fixed
// cadence. Scores otherwise only move when votes arrive, so without the
// sweep a stale idea would hold its rank forever. The sweep publishes no
// events: delta events exist only for vote transitions.
type DecayWorker struct {
	tally    *TallyService
	trend    *TrendService
	interval time.Duration
	stopCh   chan struct{}

	// now is swappable for tests.
	now func() time.Time
}

func NewDecayWorker(tally *TallyService, trend *TrendService, interval time.Duration) *DecayWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &DecayWorker{
		tally:    tally,
		trend:    trend,
		interval: interval,
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}
}

// Start begins the periodic decay sweep. It runs one tick immediately, then
// every interval.
func (w *DecayWorker) Start(ctx context.Context) {
	log.Info().Str("component", "decay").Dur("interval", w.interval).Msg("decay worker starting")

	w.tick()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.tick()
		case <-ctx.Done():
			log.Info().Str("component", "decay").Msg("decay worker stopping (context cancelled)")
			return
		case <-w.stopCh:
			log.Info().Str("component", "decay").Msg("decay worker stopping (stop signal)")
			return
		}
	}
}

// Stop signals the worker to stop.
func (w *DecayWorker) Stop() {
	close(w.stopCh)
}

func (w *DecayWorker) tick() {
	start := time.Now()
	w.tally.Rescore(w.now().UTC(), w.trend.Score)
	log.Debug().Str("component", "decay").
		Int("ideas", w.tally.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("sweep complete")
}
