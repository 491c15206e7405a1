package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/adrian-glinqvist/ideasvault/internal/model"
)

// VoteService orchestrates a vote across the ledger, tally, scorer and hub.
// It owns operation ordering: ledger first (it decides the delta), then the
// tally with an in-section rescore, then publish, then write-behind
// persistence. Nothing here blocks on storage or on slow subscribers.
type VoteService struct {
	ledger   *LedgerService
	tally    *TallyService
	trend    *TrendService
	hub      *HubService
	persist  *PersistWorker
	votes    VoteStorage
	counters CounterStorage
	metrics  *EngineMetrics

	// now is swappable for tests.
	now func() time.Time
}

func NewVoteService(ledger *LedgerService, tally *TallyService, trend *TrendService, hub *HubService, persist *PersistWorker, votes VoteStorage, counters CounterStorage, metrics *EngineMetrics) *VoteService {
	return &VoteService{
		ledger:   ledger,
		tally:    tally,
		trend:    trend,
		hub:      hub,
		persist:  persist,
		votes:    votes,
		counters: counters,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Warm loads persisted state into the engine. Called once at startup before
// any traffic is served.
func (s *VoteService) Warm(ctx context.Context) error {
	counters, err := s.counters.LoadAllIdeaCounters(ctx)
	if err != nil {
		return fmt.Errorf("load idea counters: %w", err)
	}
	s.tally.Warm(counters)

	records, err := s.votes.LoadAllVoteRecords(ctx)
	if err != nil {
		return fmt.Errorf("load vote records: %w", err)
	}
	s.ledger.Warm(records)

	log.Info().Int("ideas", len(counters)).Int("votes", len(records)).Msg("engine warmed from storage")
	return nil
}

// Submit processes a vote submission: +1 or -1 from one user on one idea.
func (s *VoteService) Submit(ctx context.Context, req model.VoteRequest) (*model.VoteResult, error) {
	if req.VoteType != 1 && req.VoteType != -1 {
		return nil, model.ErrInvalidVote
	}
	if !s.tally.Exists(req.IdeaID) {
		return nil, model.ErrNotFound
	}

	tr, err := s.applyWithRetry(ctx, func(ctx context.Context) (model.VoteTransition, error) {
		return s.ledger.ApplyVote(ctx, req.UserID, req.IdeaID, req.VoteType)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveVote(string(tr.Kind))
	return s.settle(req.IdeaID, tr)
}

// Retract removes the user's vote on the idea. Retracting when no vote
// exists succeeds and changes nothing.
func (s *VoteService) Retract(ctx context.Context, req model.RetractRequest) (*model.VoteResult, error) {
	if !s.tally.Exists(req.IdeaID) {
		return nil, model.ErrNotFound
	}

	tr, err := s.applyWithRetry(ctx, func(ctx context.Context) (model.VoteTransition, error) {
		return s.ledger.RetractVote(ctx, req.UserID, req.IdeaID)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveVote(string(tr.Kind))
	return s.settle(req.IdeaID, tr)
}

// applyWithRetry runs a ledger mutation with one internal retry on pair
// contention. The retry is safe: a contended mutation never got the lock, so
// nothing was applied.
func (s *VoteService) applyWithRetry(ctx context.Context, apply func(ctx context.Context) (model.VoteTransition, error)) (model.VoteTransition, error) {
	tr, err := apply(ctx)
	if errors.Is(err, model.ErrConflictRetry) {
		s.metrics.Contention()
		tr, err = apply(ctx)
	}
	return tr, err
}

// settle turns a ledger transition into the caller's result, adjusting the
// tally and publishing deltas only when the transition actually moved the
// count. Both publishes are enqueued before settle returns, so the caller's
// response never races ahead of its own events.
func (s *VoteService) settle(ideaID string, tr model.VoteTransition) (*model.VoteResult, error) {
	if tr.Delta == 0 {
		snap, err := s.tally.Snapshot(ideaID)
		if err != nil {
			return nil, err
		}
		return voteResult(snap, tr.UserVote), nil
	}

	now := s.now().UTC()
	snap, err := s.tally.Adjust(ideaID, tr.Delta, now, s.trend.Score)
	if err != nil {
		return nil, err
	}

	ev := model.DeltaEvent{
		IdeaID:     snap.IdeaID,
		VoteCount:  snap.VoteCount,
		TrendScore: snap.TrendScore,
		Timestamp:  now,
	}
	s.hub.Publish(model.TopicForIdea(ideaID), ev)
	s.hub.Publish(model.TopicGlobalFeed, ev)

	if s.persist != nil {
		s.persist.EnqueueCounters(snap.Counters())
	}
	return voteResult(snap, tr.UserVote), nil
}

func voteResult(snap model.IdeaSnapshot, userVote int) *model.VoteResult {
	return &model.VoteResult{
		IdeaID:     snap.IdeaID,
		VoteCount:  snap.VoteCount,
		TrendScore: snap.TrendScore,
		UserVote:   userVote,
	}
}

// RegisterIdea admits an idea into the engine. The returned bool reports
// whether the idea was newly created; re-registering an existing ID returns
// its current snapshot untouched.
func (s *VoteService) RegisterIdea(ctx context.Context, ideaID, title string) (model.IdeaSnapshot, bool, error) {
	if ideaID == "" {
		ideaID = uuid.NewString()
	}
	now := s.now().UTC()

	created := s.tally.Register(ideaID, title, now)
	snap, err := s.tally.Snapshot(ideaID)
	if err != nil {
		return model.IdeaSnapshot{}, false, err
	}
	if !created {
		return snap, false, nil
	}

	// Create the durable row up front so write-behind vote records have a
	// parent to reference. A failure here is not fatal: the persist queue
	// will upsert the row on the next counter flush.
	if s.counters != nil {
		if err := s.counters.CreateIdea(ctx, snap.Counters()); err != nil {
			log.Warn().Err(err).Str("ideaId", ideaID).Msg("idea create persistence lagging")
			if s.persist != nil {
				s.persist.EnqueueCounters(snap.Counters())
			}
		}
	}

	log.Info().Str("ideaId", ideaID).Msg("idea registered")
	return snap, true, nil
}

// RecordView bumps the idea's view counter. Views publish no events and are
// deliberately not deduplicated.
func (s *VoteService) RecordView(ideaID string) (model.IdeaSnapshot, error) {
	snap, err := s.tally.RecordView(ideaID, s.now().UTC())
	if err != nil {
		return model.IdeaSnapshot{}, err
	}
	if s.persist != nil {
		s.persist.EnqueueCounters(snap.Counters())
	}
	return snap, nil
}

// Snapshot reads one idea's live counters.
func (s *VoteService) Snapshot(ideaID string) (model.IdeaSnapshot, error) {
	return s.tally.Snapshot(ideaID)
}

// UserVote reports the pair's current ledger state.
func (s *VoteService) UserVote(userID, ideaID string) int {
	return s.ledger.UserVote(userID, ideaID)
}

// Trending returns the current ranked feed, capped at limit.
func (s *VoteService) Trending(limit int) []model.TrendingEntry {
	return s.tally.Trending(limit)
}

// Counts reports aggregate engine state for the stats endpoint.
func (s *VoteService) Counts() (ideas, votes, subscribers int) {
	return s.tally.Len(), s.ledger.Len(), s.hub.SubscriberCount()
}
