package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// ReconcileWorker periodically folds the ledger per idea and overwrites any
// tally that disagrees. The ledger is the source of truth; the tally is a
// running total that can drift if a correction path is ever missed.
type ReconcileWorker struct {
	ledger   *LedgerService
	tally    *TallyService
	trend    *TrendService
	persist  *PersistWorker
	metrics  *EngineMetrics
	interval time.Duration
	stopCh   chan struct{}
}

func NewReconcileWorker(ledger *LedgerService, tally *TallyService, trend *TrendService, persist *PersistWorker, interval time.Duration, metrics *EngineMetrics) *ReconcileWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReconcileWorker{
		ledger:   ledger,
		tally:    tally,
		trend:    trend,
		persist:  persist,
		metrics:  metrics,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic reconciliation loop. It runs one tick
// immediately, then every interval.
func (w *ReconcileWorker) Start(ctx context.Context) {
	log.Info().Str("component", "reconcile").Dur("interval", w.interval).Msg("reconcile worker starting")

	w.tick()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.tick()
		case <-ctx.Done():
			log.Info().Str("component", "reconcile").Msg("reconcile worker stopping (context cancelled)")
			return
		case <-w.stopCh:
			log.Info().Str("component", "reconcile").Msg("reconcile worker stopping (stop signal)")
			return
		}
	}
}

// Stop signals the worker to stop.
func (w *ReconcileWorker) Stop() {
	close(w.stopCh)
}

// tick runs one cycle: compare every idea's tally against the ledger sum and
// correct disagreements.
func (w *ReconcileWorker) tick() {
	start := time.Now()
	now := start.UTC()

	checked, corrected := 0, 0
	for _, id := range w.tally.IDs() {
		sum := w.ledger.SumForIdea(id)
		drift, snap, err := w.tally.Reconcile(id, sum, now, w.trend.Score)
		if err != nil {
			continue
		}
		checked++
		if drift == 0 {
			continue
		}

		corrected++
		w.metrics.DriftCorrected()
		log.Warn().Str("component", "reconcile").
			Str("ideaId", id).
			Int64("drift", drift).
			Int64("correctedTo", sum).
			Msg("tally drift corrected")

		if w.persist != nil {
			w.persist.EnqueueCounters(snap.Counters())
		}
	}

	if corrected > 0 {
		log.Info().Str("component", "reconcile").
			Int("checked", checked).
			Int("corrected", corrected).
			Dur("elapsed", time.Since(start)).
			Msg("tick complete")
		return
	}
	log.Debug().Str("component", "reconcile").
		Int("checked", checked).
		Dur("elapsed", time.Since(start)).
		Msg("tick complete")
}
