package model

import "time"

// VoteRecord is a user's current vote on an idea. The ledger holds at most
// one record per (userId, ideaId) pair.
type VoteRecord struct {
	UserID    string    `json:"userId"`
	IdeaID    string    `json:"ideaId"`
	Value     int       `json:"value"` // +1 or -1
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TransitionKind classifies what a ledger mutation did to the pair's record.
type TransitionKind string

const (
	TransitionNew       TransitionKind = "new"       // first vote on the pair
	TransitionUnchanged TransitionKind = "unchanged" // same value re-sent, no-op
	TransitionChanged   TransitionKind = "changed"   // value flipped
	TransitionRetracted TransitionKind = "retracted" // record removed
	TransitionNoVote    TransitionKind = "no_vote"   // retract with nothing to remove
)

// VoteTransition is the outcome of a ledger mutation. Delta is the amount the
// idea's vote count moves by (0, ±1, or ±2 on a flip); UserVote is the pair's
// resulting ledger state (-1, 0, +1).
type VoteTransition struct {
	Kind     TransitionKind `json:"kind"`
	Delta    int            `json:"delta"`
	UserVote int            `json:"userVote"`
}

// VoteRequest is the API request body for submitting a vote.
type VoteRequest struct {
	IdeaID   string `json:"ideaId"`
	UserID   string `json:"userId"`
	VoteType int    `json:"voteType"`
}

// RetractRequest is the API request body for removing a vote.
type RetractRequest struct {
	IdeaID string `json:"ideaId"`
	UserID string `json:"userId"`
}

// VoteResult is returned to the voter synchronously once the in-memory
// mutation has settled.
type VoteResult struct {
	IdeaID     string  `json:"ideaId"`
	VoteCount  int64   `json:"voteCount"`
	TrendScore float64 `json:"trendScore"`
	UserVote   int     `json:"userVote"`
}
