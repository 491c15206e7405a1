package model

import "time"

// IdeaCounters is the durable counter row for an idea: what the storage
// collaborator loads at warmup and persists behind the vote path.
type IdeaCounters struct {
	IdeaID         string    `json:"ideaId"`
	Title          string    `json:"title,omitempty"`
	VoteCount      int64     `json:"voteCount"`
	ViewCount      int64     `json:"viewCount"`
	TrendScore     float64   `json:"trendScore"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

// IdeaSnapshot is a consistent read of one idea's live counters, taken under
// the tally's per-idea critical section.
type IdeaSnapshot struct {
	IdeaID         string    `json:"ideaId"`
	Title          string    `json:"title,omitempty"`
	VoteCount      int64     `json:"voteCount"`
	ViewCount      int64     `json:"viewCount"`
	TrendScore     float64   `json:"trendScore"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

// Counters converts the snapshot into its durable row form.
func (s IdeaSnapshot) Counters() IdeaCounters {
	return IdeaCounters{
		IdeaID:         s.IdeaID,
		Title:          s.Title,
		VoteCount:      s.VoteCount,
		ViewCount:      s.ViewCount,
		TrendScore:     s.TrendScore,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
	}
}

// TrendingEntry is one row of the score-ranked feed.
type TrendingEntry struct {
	IdeaID     string  `json:"ideaId"`
	Title      string  `json:"title,omitempty"`
	VoteCount  int64   `json:"voteCount"`
	TrendScore float64 `json:"trendScore"`
}

// CreateIdeaRequest is the API request body for admitting an idea into the
// engine. IdeaID is optional; a fresh one is generated when absent.
type CreateIdeaRequest struct {
	IdeaID string `json:"ideaId,omitempty"`
	Title  string `json:"title"`
}

// TrendingResponse is the API response for the ranked feed.
type TrendingResponse struct {
	Ideas       []TrendingEntry `json:"ideas"`
	GeneratedAt string          `json:"generatedAt"`
}

// StatsResponse is the API response for aggregate engine statistics.
type StatsResponse struct {
	Ideas             int   `json:"ideas"`
	Votes             int   `json:"votes"`
	ActiveSubscribers int   `json:"activeSubscribers"`
	UptimeSeconds     int64 `json:"uptimeSeconds"`
}
