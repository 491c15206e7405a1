package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adrian-glinqvist/ideasvault/internal/model"
)

// IdeaRepo persists per-idea counter rows in Postgres.
type IdeaRepo struct {
	pool *pgxpool.Pool
}

func NewIdeaRepo(pool *pgxpool.Pool) *IdeaRepo {
	return &IdeaRepo{pool: pool}
}

// LoadAllIdeaCounters reads every idea row for engine warm-up.
func (r *IdeaRepo) LoadAllIdeaCounters(ctx context.Context) ([]model.IdeaCounters, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT idea_id, title, vote_count, view_count, trend_score, created_at, last_activity_at
		FROM ideas`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counters []model.IdeaCounters
	for rows.Next() {
		var c model.IdeaCounters
		err := rows.Scan(
			&c.IdeaID, &c.Title, &c.VoteCount, &c.ViewCount,
			&c.TrendScore, &c.CreatedAt, &c.LastActivityAt,
		)
		if err != nil {
			return nil, err
		}
		counters = append(counters, c)
	}
	return counters, rows.Err()
}

// CreateIdea inserts the idea's row. Creating an idea that already exists is
// a no-op so restarts and double registrations stay quiet.
func (r *IdeaRepo) CreateIdea(ctx context.Context, c model.IdeaCounters) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ideas (idea_id, title, vote_count, view_count, trend_score, created_at, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (idea_id) DO NOTHING`,
		c.IdeaID, c.Title, c.VoteCount, c.ViewCount, c.TrendScore, c.CreatedAt, c.LastActivityAt)
	return err
}

// PersistIdeaCounters upserts the idea's counters with their absolute state.
// The write-behind queue coalesces per idea, so rows converge on the live
// tally even when flushes are delayed or replayed.
func (r *IdeaRepo) PersistIdeaCounters(ctx context.Context, c model.IdeaCounters) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ideas (idea_id, title, vote_count, view_count, trend_score, created_at, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (idea_id) DO UPDATE
		SET title = EXCLUDED.title,
		    vote_count = EXCLUDED.vote_count,
		    view_count = EXCLUDED.view_count,
		    trend_score = EXCLUDED.trend_score,
		    last_activity_at = EXCLUDED.last_activity_at`,
		c.IdeaID, c.Title, c.VoteCount, c.ViewCount, c.TrendScore, c.CreatedAt, c.LastActivityAt)
	return err
}
