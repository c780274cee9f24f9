package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jjudge-oj/contestjudge/types"
)

// SubmissionRepository handles persistence for submissions. Records are
// append-only.
type SubmissionRepository struct {
	db *sql.DB
}

func NewSubmissionRepository(db *sql.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func (r *SubmissionRepository) Get(ctx context.Context, id int) (types.Submission, error) {
	const query = `
		SELECT id, contest_id, question_id, user_id, code, language, status,
		       passed_count, total, test_results, submitted_at
		FROM submissions
		WHERE id = $1`
	var submission types.Submission
	var resultsJSON []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&submission.ID,
		&submission.ContestID,
		&submission.QuestionID,
		&submission.UserID,
		&submission.Code,
		&submission.Language,
		&submission.Status,
		&submission.TestSummary.PassedCount,
		&submission.TestSummary.Total,
		&resultsJSON,
		&submission.SubmittedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Submission{}, ErrNotFound
		}
		return types.Submission{}, err
	}

	_ = json.Unmarshal(resultsJSON, &submission.TestResults)
	return submission, nil
}

// ListByParticipant returns one participant's submissions in a contest,
// newest first, without per-case results.
func (r *SubmissionRepository) ListByParticipant(ctx context.Context, contestID, userID int) ([]types.Submission, error) {
	const query = `
		SELECT id, contest_id, question_id, user_id, code, language, status,
		       passed_count, total, submitted_at
		FROM submissions
		WHERE contest_id = $1 AND user_id = $2
		ORDER BY submitted_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, contestID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []types.Submission
	for rows.Next() {
		var submission types.Submission
		if err := rows.Scan(
			&submission.ID,
			&submission.ContestID,
			&submission.QuestionID,
			&submission.UserID,
			&submission.Code,
			&submission.Language,
			&submission.Status,
			&submission.TestSummary.PassedCount,
			&submission.TestSummary.Total,
			&submission.SubmittedAt,
		); err != nil {
			return nil, err
		}
		submissions = append(submissions, submission)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *SubmissionRepository) Create(ctx context.Context, submission types.Submission) (types.Submission, error) {
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now()
	}

	resultsJSON, err := json.Marshal(nonNil(submission.TestResults))
	if err != nil {
		return types.Submission{}, err
	}

	const query = `
		INSERT INTO submissions (
			contest_id, question_id, user_id, code, language, status,
			passed_count, total, test_results, submitted_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		submission.ContestID,
		submission.QuestionID,
		submission.UserID,
		submission.Code,
		submission.Language,
		submission.Status,
		submission.TestSummary.PassedCount,
		submission.TestSummary.Total,
		resultsJSON,
		submission.SubmittedAt,
	).Scan(&submission.ID); err != nil {
		return types.Submission{}, err
	}

	return submission, nil
}
