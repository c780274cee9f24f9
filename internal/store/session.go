package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jjudge-oj/contestjudge/types"
)

// SessionRepository persists the session-of-record in user_contests, keyed
// by (user_id, contest_id). Writes are merges and the last write wins.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `user_id, contest_id, status, started_at, ended_at, duration, started_level, end_reason`

func scanSession(row interface{ Scan(...any) error }) (types.Session, error) {
	var session types.Session
	var endedAt sql.NullTime
	err := row.Scan(
		&session.UserID,
		&session.ContestID,
		&session.Status,
		&session.StartedAt,
		&endedAt,
		&session.Duration,
		&session.StartedLevel,
		&session.EndReason,
	)
	if err != nil {
		return types.Session{}, err
	}
	if endedAt.Valid {
		t := endedAt.Time
		session.EndedAt = &t
	}
	return session, nil
}

func (r *SessionRepository) Get(ctx context.Context, userID, contestID int) (types.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM user_contests WHERE user_id = $1 AND contest_id = $2`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, userID, contestID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Session{}, ErrNotFound
		}
		return types.Session{}, err
	}
	return session, nil
}

// Start merges {status: started, started_at, duration, started_level} into
// the record. An ended record is never rewritten; ErrConflict is returned.
func (r *SessionRepository) Start(ctx context.Context, session types.Session) (types.Session, error) {
	const query = `
		INSERT INTO user_contests (user_id, contest_id, status, started_at, duration, started_level)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, contest_id) DO UPDATE
		SET status = EXCLUDED.status,
			started_at = EXCLUDED.started_at,
			duration = EXCLUDED.duration,
			started_level = EXCLUDED.started_level
		WHERE user_contests.status <> 'ended'
		RETURNING ` + sessionColumns
	started, err := scanSession(r.db.QueryRowContext(
		ctx,
		query,
		session.UserID,
		session.ContestID,
		types.SessionStarted,
		session.StartedAt,
		session.Duration,
		session.StartedLevel,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Session{}, ErrConflict
		}
		return types.Session{}, err
	}
	return started, nil
}

// End marks the record ended. It reports false without error when the
// record was already ended, and ErrNotFound when there is no record.
func (r *SessionRepository) End(ctx context.Context, userID, contestID int, reason types.EndReason, at time.Time) (bool, error) {
	const query = `
		UPDATE user_contests
		SET status = $1,
			ended_at = $2,
			end_reason = $3
		WHERE user_id = $4 AND contest_id = $5 AND status <> 'ended'`
	result, err := r.db.ExecContext(ctx, query, types.SessionEnded, at, reason, userID, contestID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		return true, nil
	}
	if _, err := r.Get(ctx, userID, contestID); err != nil {
		return false, err
	}
	return false, nil
}

// ListByUser returns a participant's records, most recently started first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID int) ([]types.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM user_contests WHERE user_id = $1 ORDER BY started_at DESC`
	return r.list(ctx, query, userID)
}

// ListRunning returns every record still marked started.
func (r *SessionRepository) ListRunning(ctx context.Context) ([]types.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM user_contests WHERE status = 'started'`
	return r.list(ctx, query)
}

func (r *SessionRepository) list(ctx context.Context, query string, args ...any) ([]types.Session, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []types.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}
