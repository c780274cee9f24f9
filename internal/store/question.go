package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jjudge-oj/contestjudge/types"
)

// QuestionRepository handles persistence for contest questions.
type QuestionRepository struct {
	db *sql.DB
}

func NewQuestionRepository(db *sql.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

const questionColumns = `id, contest_id, title, description, constraints, level, inputs,
		sample_inputs, sample_outputs, sample_input, sample_output, sample_bundle,
		created_at, updated_at`

func scanQuestion(row interface{ Scan(...any) error }) (types.Question, error) {
	var question types.Question
	var inputsJSON, samplesInJSON, samplesOutJSON, bundleJSON []byte
	if err := row.Scan(
		&question.ID,
		&question.ContestID,
		&question.Title,
		&question.Description,
		&question.Constraints,
		&question.Level,
		&inputsJSON,
		&samplesInJSON,
		&samplesOutJSON,
		&question.SampleInput,
		&question.SampleOutput,
		&bundleJSON,
		&question.CreatedAt,
		&question.UpdatedAt,
	); err != nil {
		return types.Question{}, err
	}

	_ = json.Unmarshal(inputsJSON, &question.Inputs)
	_ = json.Unmarshal(samplesInJSON, &question.SampleInputs)
	_ = json.Unmarshal(samplesOutJSON, &question.SampleOutputs)
	_ = json.Unmarshal(bundleJSON, &question.SampleBundle)
	return question, nil
}

type questionJSON struct {
	inputs, samplesIn, samplesOut, bundle []byte
}

func marshalQuestion(question types.Question) (questionJSON, error) {
	var out questionJSON
	var err error
	if out.inputs, err = json.Marshal(nonNil(question.Inputs)); err != nil {
		return out, err
	}
	if out.samplesIn, err = json.Marshal(nonNil(question.SampleInputs)); err != nil {
		return out, err
	}
	if out.samplesOut, err = json.Marshal(nonNil(question.SampleOutputs)); err != nil {
		return out, err
	}
	out.bundle, err = json.Marshal(question.SampleBundle)
	return out, err
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// ListByContest returns a contest's questions ordered by level then id.
func (r *QuestionRepository) ListByContest(ctx context.Context, contestID int) ([]types.Question, error) {
	const query = `
		SELECT ` + questionColumns + `
		FROM questions
		WHERE contest_id = $1
		ORDER BY level, id`
	rows, err := r.db.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []types.Question
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, question)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *QuestionRepository) Get(ctx context.Context, id int) (types.Question, error) {
	const query = `SELECT ` + questionColumns + ` FROM questions WHERE id = $1`
	question, err := scanQuestion(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Question{}, ErrNotFound
		}
		return types.Question{}, err
	}
	return question, nil
}

func (r *QuestionRepository) Create(ctx context.Context, question types.Question) (types.Question, error) {
	now := time.Now()
	question.CreatedAt = now
	question.UpdatedAt = now

	encoded, err := marshalQuestion(question)
	if err != nil {
		return types.Question{}, err
	}

	const query = `
		INSERT INTO questions (
			contest_id, title, description, constraints, level, inputs,
			sample_inputs, sample_outputs, sample_input, sample_output, sample_bundle,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		question.ContestID,
		question.Title,
		question.Description,
		question.Constraints,
		question.Level,
		encoded.inputs,
		encoded.samplesIn,
		encoded.samplesOut,
		question.SampleInput,
		question.SampleOutput,
		encoded.bundle,
		question.CreatedAt,
		question.UpdatedAt,
	).Scan(&question.ID); err != nil {
		return types.Question{}, err
	}
	return question, nil
}

func (r *QuestionRepository) Update(ctx context.Context, question types.Question) (types.Question, error) {
	question.UpdatedAt = time.Now()

	encoded, err := marshalQuestion(question)
	if err != nil {
		return types.Question{}, err
	}

	const query = `
		UPDATE questions
		SET title = $1,
			description = $2,
			constraints = $3,
			level = $4,
			inputs = $5,
			sample_inputs = $6,
			sample_outputs = $7,
			sample_input = $8,
			sample_output = $9,
			sample_bundle = $10,
			updated_at = $11
		WHERE id = $12
		RETURNING contest_id, created_at`
	err = r.db.QueryRowContext(
		ctx,
		query,
		question.Title,
		question.Description,
		question.Constraints,
		question.Level,
		encoded.inputs,
		encoded.samplesIn,
		encoded.samplesOut,
		question.SampleInput,
		question.SampleOutput,
		encoded.bundle,
		question.UpdatedAt,
		question.ID,
	).Scan(&question.ContestID, &question.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Question{}, ErrNotFound
		}
		return types.Question{}, err
	}
	return question, nil
}

func (r *QuestionRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM questions WHERE id = $1`
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
