package service

import (
	"sort"
	"sync"
	"time"

	"github.com/adrian-glinqvist/ideasvault/internal/model"
)

// ideaTally is the live counter set for a single idea. Every read and write
// goes through its mutex so callers never observe a vote count from one
// moment paired with a score from another.
type ideaTally struct {
	mu sync.Mutex

	title          string
	voteCount      int64
	viewCount      int64
	trendScore     float64
	createdAt      time.Time
	lastActivityAt time.Time
}

func (t *ideaTally) snapshotLocked(ideaID string) model.IdeaSnapshot {
	return model.IdeaSnapshot{
		IdeaID:         ideaID,
		Title:          t.title,
		VoteCount:      t.voteCount,
		ViewCount:      t.viewCount,
		TrendScore:     t.trendScore,
		CreatedAt:      t.createdAt,
		LastActivityAt: t.lastActivityAt,
	}
}

// TallyService maintains per-idea counters for every idea admitted to the
// engine. The outer RWMutex guards only map admission and lookup; all
// counter access is per-item.
type TallyService struct {
	mu      sync.RWMutex
	tallies map[string]*ideaTally
}

func NewTallyService() *TallyService {
	return &TallyService{tallies: make(map[string]*ideaTally)}
}

// Warm seeds the store from persisted counters at startup.
func (s *TallyService) Warm(counters []model.IdeaCounters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range counters {
		s.tallies[c.IdeaID] = &ideaTally{
			title:          c.Title,
			voteCount:      c.VoteCount,
			viewCount:      c.ViewCount,
			trendScore:     c.TrendScore,
			createdAt:      c.CreatedAt,
			lastActivityAt: c.LastActivityAt,
		}
	}
}

// Register admits an idea. Registration is idempotent: a second call for the
// same ID reports false and changes nothing.
func (s *TallyService) Register(ideaID, title string, createdAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tallies[ideaID]; exists {
		return false
	}
	s.tallies[ideaID] = &ideaTally{
		title:          title,
		createdAt:      createdAt,
		lastActivityAt: createdAt,
	}
	return true
}

func (s *TallyService) Exists(ideaID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tallies[ideaID]
	return ok
}

func (s *TallyService) get(ideaID string) (*ideaTally, error) {
	s.mu.RLock()
	t, ok := s.tallies[ideaID]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrNotFound
	}
	return t, nil
}

// Adjust applies a signed vote delta and refreshes the idea's score inside
// one critical section, so the returned snapshot is internally consistent.
func (s *TallyService) Adjust(ideaID string, delta int, now time.Time, rescore func(votes int64, age time.Duration) float64) (model.IdeaSnapshot, error) {
	t, err := s.get(ideaID)
	if err != nil {
		return model.IdeaSnapshot{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.voteCount += int64(delta)
	t.lastActivityAt = now
	if rescore != nil {
		t.trendScore = rescore(t.voteCount, now.Sub(t.createdAt))
	}
	return t.snapshotLocked(ideaID), nil
}

// RecordView bumps the view counter. Views are deliberately not
// deduplicated and do not feed the trend score.
func (s *TallyService) RecordView(ideaID string, now time.Time) (model.IdeaSnapshot, error) {
	t, err := s.get(ideaID)
	if err != nil {
		return model.IdeaSnapshot{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.viewCount++
	t.lastActivityAt = now
	return t.snapshotLocked(ideaID), nil
}

// SetScore overwrites the idea's trend score.
func (s *TallyService) SetScore(ideaID string, score float64) error {
	t, err := s.get(ideaID)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.trendScore = score
	t.mu.Unlock()
	return nil
}

// Rescore recomputes every idea's score from its age. Used by the decay
// sweep so rankings sink even when no votes arrive.
func (s *TallyService) Rescore(now time.Time, rescore func(votes int64, age time.Duration) float64) {
	for _, id := range s.IDs() {
		t, err := s.get(id)
		if err != nil {
			continue
		}
		t.mu.Lock()
		t.trendScore = rescore(t.voteCount, now.Sub(t.createdAt))
		t.mu.Unlock()
	}
}

// Snapshot reads the idea's current counters.
func (s *TallyService) Snapshot(ideaID string) (model.IdeaSnapshot, error) {
	t, err := s.get(ideaID)
	if err != nil {
		return model.IdeaSnapshot{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked(ideaID), nil
}

// Trending returns the top ideas by trend score, ties broken by most recent
// activity. limit <= 0 means no limit.
func (s *TallyService) Trending(limit int) []model.TrendingEntry {
	s.mu.RLock()
	ids := make([]string, 0, len(s.tallies))
	for id := range s.tallies {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	type ranked struct {
		entry    model.TrendingEntry
		activity time.Time
	}
	entries := make([]ranked, 0, len(ids))
	for _, id := range ids {
		t, err := s.get(id)
		if err != nil {
			continue
		}
		t.mu.Lock()
		entries = append(entries, ranked{
			entry: model.TrendingEntry{
				IdeaID:     id,
				Title:      t.title,
				VoteCount:  t.voteCount,
				TrendScore: t.trendScore,
			},
			activity: t.lastActivityAt,
		})
		t.mu.Unlock()
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].entry.TrendScore != entries[j].entry.TrendScore {
			return entries[i].entry.TrendScore > entries[j].entry.TrendScore
		}
		if !entries[i].activity.Equal(entries[j].activity) {
			return entries[i].activity.After(entries[j].activity)
		}
		return entries[i].entry.IdeaID < entries[j].entry.IdeaID
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]model.TrendingEntry, len(entries))
	for i, r := range entries {
		out[i] = r.entry
	}
	return out
}

// Reconcile overwrites the idea's vote count with the ledger's sum when they
// disagree. Returns how far the tally had drifted (0 means no correction).
func (s *TallyService) Reconcile(ideaID string, ledgerSum int64, now time.Time, rescore func(votes int64, age time.Duration) float64) (int64, model.IdeaSnapshot, error) {
	t, err := s.get(ideaID)
	if err != nil {
		return 0, model.IdeaSnapshot{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	drift := ledgerSum - t.voteCount
	if drift != 0 {
		t.voteCount = ledgerSum
		if rescore != nil {
			t.trendScore = rescore(t.voteCount, now.Sub(t.createdAt))
		}
	}
	return drift, t.snapshotLocked(ideaID), nil
}

// IDs lists every admitted idea.
func (s *TallyService) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.tallies))
	for id := range s.tallies {
		ids = append(ids, id)
	}
	return ids
}

// Len reports the number of admitted ideas.
func (s *TallyService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tallies)
}

// TallySnapshots adapts the tally store to the hub's SnapshotSource.
type TallySnapshots struct {
	tally *TallyService
	limit int
}

func NewTallySnapshots(tally *TallyService, limit int) *TallySnapshots {
	return &TallySnapshots{tally: tally, limit: limit}
}

func (t *TallySnapshots) IdeaSnapshot(ideaID string) (model.IdeaSnapshot, error) {
	return t.tally.Snapshot(ideaID)
}

func (t *TallySnapshots) TrendingSnapshot() []model.TrendingEntry {
	return t.tally.Trending(t.limit)
}
