package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/adrian-glinqvist/ideasvault/internal/model"
)

// maxPendingCounters bounds the counter queue. Counter writes are safe to
// shed: the reconciliation sweep and the next vote both reproduce them.
// Vote record writes are never shed.
const maxPendingCounters = 4096

// voteOp is one pending vote-record write. Ops carry the absolute record
// state at commit time, so applying them is idempotent and a retried op can
// be superseded by a newer one for the same pair.
type voteOp struct {
	del    bool
	userID string
	ideaID string
	rec    model.VoteRecord
}

// PersistWorker flushes engine state to storage behind the vote path. Writes
// are coalesced latest-wins per key between ticks, so a hot idea costs one
// storage write per interval rather than one per vote.
type PersistWorker struct {
	votes    VoteStorage
	counters CounterStorage
	interval time.Duration
	metrics  *EngineMetrics

	mu              sync.Mutex
	pendingVotes    map[string]voteOp
	pendingCounters map[string]model.IdeaCounters
}

func NewPersistWorker(votes VoteStorage, counters CounterStorage, interval time.Duration, metrics *EngineMetrics) *PersistWorker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &PersistWorker{
		votes:           votes,
		counters:        counters,
		interval:        interval,
		metrics:         metrics,
		pendingVotes:    make(map[string]voteOp),
		pendingCounters: make(map[string]model.IdeaCounters),
	}
}

// EnqueueVoteSave queues the record's current state for persistence.
func (w *PersistWorker) EnqueueVoteSave(rec model.VoteRecord) {
	key := pairKey(rec.UserID, rec.IdeaID)
	w.mu.Lock()
	w.pendingVotes[key] = voteOp{userID: rec.UserID, ideaID: rec.IdeaID, rec: rec}
	w.mu.Unlock()
}

// EnqueueVoteDelete queues removal of the pair's record.
func (w *PersistWorker) EnqueueVoteDelete(userID, ideaID string) {
	key := pairKey(userID, ideaID)
	w.mu.Lock()
	w.pendingVotes[key] = voteOp{del: true, userID: userID, ideaID: ideaID}
	w.mu.Unlock()
}

// EnqueueCounters queues the idea's counter row for persistence.
func (w *PersistWorker) EnqueueCounters(c model.IdeaCounters) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.pendingCounters[c.IdeaID]; !exists && len(w.pendingCounters) >= maxPendingCounters {
		log.Warn().Str("component", "persist").Str("ideaId", c.IdeaID).
			Msg("counter queue full, shedding write")
		return
	}
	w.pendingCounters[c.IdeaID] = c
}

// Start runs the flush loop until ctx is cancelled, then flushes once more.
func (w *PersistWorker) Start(ctx context.Context) {
	log.Info().Str("component", "persist").Dur("interval", w.interval).Msg("persist worker starting")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Flush(ctx)
		case <-ctx.Done():
			// Final flush with a fresh context so shutdown still drains.
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			w.Flush(flushCtx)
			cancel()
			log.Info().Str("component", "persist").Msg("persist worker stopped")
			return
		}
	}
}

// Flush drains both pending maps and writes them out. Failed writes are
// re-queued unless a newer op for the same key has arrived in the meantime.
func (w *PersistWorker) Flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.pendingVotes) == 0 && len(w.pendingCounters) == 0 {
		w.mu.Unlock()
		return
	}
	votes := w.pendingVotes
	counters := w.pendingCounters
	w.pendingVotes = make(map[string]voteOp)
	w.pendingCounters = make(map[string]model.IdeaCounters)
	w.mu.Unlock()

	start := time.Now()
	var voteFails, counterFails int

	for key, op := range votes {
		var err error
		if op.del {
			err = w.votes.DeleteVoteRecord(ctx, op.userID, op.ideaID)
		} else {
			err = w.votes.SaveVoteRecord(ctx, op.rec)
		}
		if err != nil {
			voteFails++
			w.metrics.PersistRetry()
			w.requeueVote(key, op)
		}
	}

	for id, c := range counters {
		if err := w.counters.PersistIdeaCounters(ctx, c); err != nil {
			counterFails++
			w.metrics.PersistRetry()
			w.requeueCounters(id, c)
		}
	}

	w.mu.Lock()
	depth := len(w.pendingVotes) + len(w.pendingCounters)
	w.mu.Unlock()
	w.metrics.SetPersistQueueDepth(depth)

	if voteFails > 0 || counterFails > 0 {
		log.Warn().Str("component", "persist").
			Int("voteFails", voteFails).
			Int("counterFails", counterFails).
			Int("requeued", depth).
			Msg("persistence lagging, writes re-queued")
		return
	}

	log.Debug().Str("component", "persist").
		Int("votes", len(votes)).
		Int("counters", len(counters)).
		Dur("elapsed", time.Since(start)).
		Msg("flush complete")
}

// PendingDepth reports how many writes are queued.
func (w *PersistWorker) PendingDepth() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pendingVotes) + len(w.pendingCounters)
}

func (w *PersistWorker) requeueVote(key string, op voteOp) {
	w.mu.Lock()
	defer w.mu.Unlock()
	// A newer op for the pair carries newer absolute state; keep it instead.
	if _, exists := w.pendingVotes[key]; !exists {
		w.pendingVotes[key] = op
	}
}

func (w *PersistWorker) requeueCounters(id string, c model.IdeaCounters) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.pendingCounters[id]; !exists {
		w.pendingCounters[id] = c
	}
}
