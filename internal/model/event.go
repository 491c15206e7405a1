package model

import "time"

// TopicGlobalFeed is the topic carrying re-ranking events for every idea.
const TopicGlobalFeed = "feed:global"

// TopicForIdea returns the per-idea update topic.
func TopicForIdea(ideaID string) string {
	return "item:" + ideaID
}

// DeltaEvent is one published change notification. Sequence numbers are
// assigned per topic by the broadcast hub, strictly increasing, never reused.
type DeltaEvent struct {
	Topic      string    `json:"topic"`
	IdeaID     string    `json:"ideaId"`
	VoteCount  int64     `json:"voteCount"`
	TrendScore float64   `json:"trendScore"`
	Sequence   uint64    `json:"sequenceNumber"`
	Timestamp  time.Time `json:"timestamp"`
}

// TopicSnapshot is the state handed to a new subscriber so it starts
// consistent: the topic's current sequence plus either the idea's counters
// (item topics) or the ranked feed (global topic).
type TopicSnapshot struct {
	Topic    string          `json:"topic"`
	Sequence uint64          `json:"sequenceNumber"`
	Idea     *IdeaSnapshot   `json:"idea,omitempty"`
	Trending []TrendingEntry `json:"trending,omitempty"`
}
