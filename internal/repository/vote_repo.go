package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adrian-glinqvist/ideasvault/internal/model"
)

// VoteRepo persists individual vote records in Postgres. The engine writes
// through it behind the vote path; reads happen only at warm-up.
type VoteRepo struct {
	pool *pgxpool.Pool
}

func NewVoteRepo(pool *pgxpool.Pool) *VoteRepo {
	return &VoteRepo{pool: pool}
}

// LoadAllVoteRecords reads every vote row for engine warm-up.
func (r *VoteRepo) LoadAllVoteRecords(ctx context.Context) ([]model.VoteRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, idea_id, value, created_at, updated_at
		FROM votes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.VoteRecord
	for rows.Next() {
		var rec model.VoteRecord
		if err := rows.Scan(&rec.UserID, &rec.IdeaID, &rec.Value, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveVoteRecord upserts the pair's record with its absolute state, so
// replaying a stale write cannot corrupt a newer one's effect on conflict.
func (r *VoteRepo) SaveVoteRecord(ctx context.Context, rec model.VoteRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO votes (user_id, idea_id, value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, idea_id) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		rec.UserID, rec.IdeaID, rec.Value, rec.CreatedAt, rec.UpdatedAt)
	return err
}

// DeleteVoteRecord removes the pair's record. Deleting an absent row is not
// an error: the retraction already took effect in memory.
func (r *VoteRepo) DeleteVoteRecord(ctx context.Context, userID, ideaID string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM votes WHERE user_id = $1 AND idea_id = $2`,
		userID, ideaID)
	return err
}
