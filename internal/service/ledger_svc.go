package service

import (
	"context"
	"sync"
	"time"

	"github.com/adrian-glinqvist/ideasvault/internal/model"
)

// voteSink receives committed vote mutations for write-behind persistence.
// Implemented by PersistWorker; nil disables persistence (tests, memory mode
// handles its own durability).
type voteSink interface {
	EnqueueVoteSave(rec model.VoteRecord)
	EnqueueVoteDelete(userID, ideaID string)
}

// LedgerService is the authoritative record of who voted what on which idea.
// At most one record exists per (user, idea) pair; all mutations for a pair
// are serialized through a per-pair lock so concurrent submissions cannot
// interleave their read-compare-write cycles.
type LedgerService struct {
	lockWait time.Duration
	locks    *keyLock
	sink     voteSink

	mu      sync.RWMutex
	records map[string]*model.VoteRecord
}

func NewLedgerService(lockWait time.Duration, sink voteSink) *LedgerService {
	return &LedgerService{
		lockWait: lockWait,
		locks:    newKeyLock(),
		sink:     sink,
		records:  make(map[string]*model.VoteRecord),
	}
}

func pairKey(userID, ideaID string) string {
	return userID + ":" + ideaID
}

// Warm loads previously persisted vote records. Called once at startup
// before the engine serves traffic.
func (s *LedgerService) Warm(records []model.VoteRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range records {
		rec := records[i]
		s.records[pairKey(rec.UserID, rec.IdeaID)] = &rec
	}
}

// ApplyVote records value for the (user, idea) pair and classifies the
// transition. The returned delta is what the tally must absorb:
// 0 for an idempotent re-vote, value for a first vote, 2*value for a flip.
func (s *LedgerService) ApplyVote(ctx context.Context, userID, ideaID string, value int) (model.VoteTransition, error) {
	if value != 1 && value != -1 {
		return model.VoteTransition{}, model.ErrInvalidVote
	}

	key := pairKey(userID, ideaID)
	if err := s.acquire(ctx, key); err != nil {
		return model.VoteTransition{}, err
	}
	defer s.locks.Release(key)

	now := time.Now().UTC()

	s.mu.Lock()
	prev, exists := s.records[key]

	if !exists {
		rec := &model.VoteRecord{
			UserID:    userID,
			IdeaID:    ideaID,
			Value:     value,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.records[key] = rec
		saved := *rec
		s.mu.Unlock()

		if s.sink != nil {
			s.sink.EnqueueVoteSave(saved)
		}
		return model.VoteTransition{Kind: model.TransitionNew, Delta: value, UserVote: value}, nil
	}

	if prev.Value == value {
		s.mu.Unlock()
		return model.VoteTransition{Kind: model.TransitionUnchanged, Delta: 0, UserVote: value}, nil
	}

	delta := value - prev.Value
	prev.Value = value
	prev.UpdatedAt = now
	saved := *prev
	s.mu.Unlock()

	if s.sink != nil {
		s.sink.EnqueueVoteSave(saved)
	}
	return model.VoteTransition{Kind: model.TransitionChanged, Delta: delta, UserVote: value}, nil
}

// RetractVote removes the pair's record if present. Retracting a vote that
// does not exist is a no-op, not an error.
func (s *LedgerService) RetractVote(ctx context.Context, userID, ideaID string) (model.VoteTransition, error) {
	key := pairKey(userID, ideaID)
	if err := s.acquire(ctx, key); err != nil {
		return model.VoteTransition{}, err
	}
	defer s.locks.Release(key)

	s.mu.Lock()
	prev, exists := s.records[key]
	if !exists {
		s.mu.Unlock()
		return model.VoteTransition{Kind: model.TransitionNoVote, Delta: 0, UserVote: 0}, nil
	}

	delta := -prev.Value
	delete(s.records, key)
	s.mu.Unlock()

	if s.sink != nil {
		s.sink.EnqueueVoteDelete(userID, ideaID)
	}
	return model.VoteTransition{Kind: model.TransitionRetracted, Delta: delta, UserVote: 0}, nil
}

// UserVote reports the pair's current ledger state: -1, 0 or +1.
func (s *LedgerService) UserVote(userID, ideaID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.records[pairKey(userID, ideaID)]; ok {
		return rec.Value
	}
	return 0
}

// SumForIdea folds every record for the idea into a signed sum. This is the
// reconciliation source of truth for the idea's vote count.
func (s *LedgerService) SumForIdea(ideaID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum int64
	for _, rec := range s.records {
		if rec.IdeaID == ideaID {
			sum += int64(rec.Value)
		}
	}
	return sum
}

// Len reports the number of live vote records.
func (s *LedgerService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// acquire takes the pair lock, bounded by lockWait. A pair that stays
// contended past the bound fails with ErrConflictRetry rather than queueing
// unboundedly.
func (s *LedgerService) acquire(ctx context.Context, key string) error {
	if s.lockWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.lockWait)
		defer cancel()
	}
	if err := s.locks.Acquire(ctx, key); err != nil {
		return model.ErrConflictRetry
	}
	return nil
}
