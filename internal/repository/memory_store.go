package repository

import (
	"context"
	"sync"

	"github.com/adrian-glinqvist/ideasvault/internal/model"
	"github.com/adrian-glinqvist/ideasvault/internal/service"
)

// MemoryStore keeps vote records and idea counters in process memory. It
// backs the engine when no DATABASE_URL is configured; state lasts as long
// as the process does.
type MemoryStore struct {
	mu    sync.RWMutex
	votes map[string]model.VoteRecord   // keyed userID:ideaID
	ideas map[string]model.IdeaCounters // keyed ideaID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		votes: make(map[string]model.VoteRecord),
		ideas: make(map[string]model.IdeaCounters),
	}
}

func voteKey(userID, ideaID string) string {
	return userID + ":" + ideaID
}

// LoadAllVoteRecords returns every stored vote record.
func (s *MemoryStore) LoadAllVoteRecords(ctx context.Context) ([]model.VoteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]model.VoteRecord, 0, len(s.votes))
	for _, rec := range s.votes {
		records = append(records, rec)
	}
	return records, nil
}

// SaveVoteRecord upserts the pair's record. The original CreatedAt survives
// value flips, matching the Postgres upsert.
func (s *MemoryStore) SaveVoteRecord(ctx context.Context, rec model.VoteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := voteKey(rec.UserID, rec.IdeaID)
	if prev, ok := s.votes[key]; ok {
		rec.CreatedAt = prev.CreatedAt
	}
	s.votes[key] = rec
	return nil
}

// DeleteVoteRecord removes the pair's record. Deleting an absent record is
// not an error.
func (s *MemoryStore) DeleteVoteRecord(ctx context.Context, userID, ideaID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.votes, voteKey(userID, ideaID))
	return nil
}

// LoadAllIdeaCounters returns every stored idea row.
func (s *MemoryStore) LoadAllIdeaCounters(ctx context.Context) ([]model.IdeaCounters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counters := make([]model.IdeaCounters, 0, len(s.ideas))
	for _, c := range s.ideas {
		counters = append(counters, c)
	}
	return counters, nil
}

// CreateIdea inserts the idea's row. Creating an idea that already exists is
// a no-op.
func (s *MemoryStore) CreateIdea(ctx context.Context, c model.IdeaCounters) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ideas[c.IdeaID]; ok {
		return nil
	}
	s.ideas[c.IdeaID] = c
	return nil
}

// PersistIdeaCounters upserts the idea's counters with their absolute state.
// The original CreatedAt survives updates, matching the Postgres upsert.
func (s *MemoryStore) PersistIdeaCounters(ctx context.Context, c model.IdeaCounters) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.ideas[c.IdeaID]; ok {
		c.CreatedAt = prev.CreatedAt
	}
	s.ideas[c.IdeaID] = c
	return nil
}

var (
	_ service.VoteStorage    = (*MemoryStore)(nil)
	_ service.CounterStorage = (*MemoryStore)(nil)
)
