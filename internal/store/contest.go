package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jjudge-oj/contestjudge/types"
)

// ContestRepository handles persistence for contests.
type ContestRepository struct {
	db *sql.DB
}

func NewContestRepository(db *sql.DB) *ContestRepository {
	return &ContestRepository{db: db}
}

const contestColumns = `id, name, duration, created_by, start_at, end_at, created_at, updated_at`

func scanContest(row interface{ Scan(...any) error }) (types.Contest, error) {
	var contest types.Contest
	err := row.Scan(
		&contest.ID,
		&contest.Name,
		&contest.Duration,
		&contest.CreatedBy,
		&contest.StartAt,
		&contest.EndAt,
		&contest.CreatedAt,
		&contest.UpdatedAt,
	)
	return contest, err
}

func (r *ContestRepository) List(ctx context.Context, offset, limit int) ([]types.Contest, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	const countQuery = `SELECT COUNT(1) FROM contests`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT ` + contestColumns + `
		FROM contests
		ORDER BY start_at DESC, id DESC
		OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, listQuery, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	contests := make([]types.Contest, 0, limit)
	for rows.Next() {
		contest, err := scanContest(rows)
		if err != nil {
			return nil, 0, err
		}
		contests = append(contests, contest)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return contests, total, nil
}

func (r *ContestRepository) Get(ctx context.Context, id int) (types.Contest, error) {
	const query = `SELECT ` + contestColumns + ` FROM contests WHERE id = $1`
	contest, err := scanContest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Contest{}, ErrNotFound
		}
		return types.Contest{}, err
	}
	return contest, nil
}

func (r *ContestRepository) Create(ctx context.Context, contest types.Contest) (types.Contest, error) {
	now := time.Now()
	contest.CreatedAt = now
	contest.UpdatedAt = now

	const query = `
		INSERT INTO contests (name, duration, created_by, start_at, end_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		contest.Name,
		contest.Duration,
		contest.CreatedBy,
		contest.StartAt,
		contest.EndAt,
		contest.CreatedAt,
		contest.UpdatedAt,
	).Scan(&contest.ID); err != nil {
		return types.Contest{}, err
	}
	return contest, nil
}

func (r *ContestRepository) Update(ctx context.Context, contest types.Contest) (types.Contest, error) {
	contest.UpdatedAt = time.Now()

	const query = `
		UPDATE contests
		SET name = $1,
			duration = $2,
			start_at = $3,
			end_at = $4,
			updated_at = $5
		WHERE id = $6
		RETURNING created_by, created_at`
	err := r.db.QueryRowContext(
		ctx,
		query,
		contest.Name,
		contest.Duration,
		contest.StartAt,
		contest.EndAt,
		contest.UpdatedAt,
		contest.ID,
	).Scan(&contest.CreatedBy, &contest.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Contest{}, ErrNotFound
		}
		return types.Contest{}, err
	}
	return contest, nil
}

func (r *ContestRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM contests WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
