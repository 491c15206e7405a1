package service

import (
	"context"

	"github.com/adrian-glinqvist/ideasvault/internal/model"
)

// VoteStorage is the durability boundary for individual vote records.
// The engine never reads through it on the vote path: records are loaded
// once at warm-up and written behind by the persist worker.
type VoteStorage interface {
	LoadAllVoteRecords(ctx context.Context) ([]model.VoteRecord, error)
	SaveVoteRecord(ctx context.Context, rec model.VoteRecord) error
	DeleteVoteRecord(ctx context.Context, userID, ideaID string) error
}

// CounterStorage is the durability boundary for per-idea counters.
type CounterStorage interface {
	LoadAllIdeaCounters(ctx context.Context) ([]model.IdeaCounters, error)
	CreateIdea(ctx context.Context, counters model.IdeaCounters) error
	PersistIdeaCounters(ctx context.Context, counters model.IdeaCounters) error
}
