package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jjudge-oj/contestjudge/internal/storage"
	"github.com/jjudge-oj/contestjudge/types"
)

// ContestRepository defines persistence operations for contests.
type ContestRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.Contest, int, error)
	Get(ctx context.Context, id int) (types.Contest, error)
	Create(ctx context.Context, contest types.Contest) (types.Contest, error)
	Update(ctx context.Context, contest types.Contest) (types.Contest, error)
	Delete(ctx context.Context, id int) error
}

// QuestionRepository defines persistence operations for questions.
type QuestionRepository interface {
	ListByContest(ctx context.Context, contestID int) ([]types.Question, error)
	Get(ctx context.Context, id int) (types.Question, error)
	Create(ctx context.Context, question types.Question) (types.Question, error)
	Update(ctx context.Context, question types.Question) (types.Question, error)
	Delete(ctx context.Context, id int) error
}

// ContestService encapsulates contest and question administration.
type ContestService struct {
	contests  ContestRepository
	questions QuestionRepository
	storage   *storage.Storage
	log       *zap.Logger
}

// NewContestService wires the service. objects may be nil, in which case
// sample bundles are parsed but not archived.
func NewContestService(contests ContestRepository, questions QuestionRepository, objects *storage.Storage, log *zap.Logger) *ContestService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ContestService{contests: contests, questions: questions, storage: objects, log: log}
}

func (s *ContestService) List(ctx context.Context, offset, limit int) ([]types.Contest, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return s.contests.List(ctx, offset, limit)
}

func (s *ContestService) Get(ctx context.Context, id int) (types.Contest, error) {
	return s.contests.Get(ctx, id)
}

func (s *ContestService) Create(ctx context.Context, contest types.Contest) (types.Contest, error) {
	if err := validateContest(contest); err != nil {
		return types.Contest{}, err
	}
	return s.contests.Create(ctx, contest)
}

func (s *ContestService) Update(ctx context.Context, contest types.Contest) (types.Contest, error) {
	if err := validateContest(contest); err != nil {
		return types.Contest{}, err
	}
	return s.contests.Update(ctx, contest)
}

func (s *ContestService) Delete(ctx context.Context, id int) error {
	return s.contests.Delete(ctx, id)
}

// Questions lists a contest's questions restricted to scope.
func (s *ContestService) Questions(ctx context.Context, contestID int, scope types.LevelScope) ([]types.Question, error) {
	if _, err := s.contests.Get(ctx, contestID); err != nil {
		return nil, err
	}
	questions, err := s.questions.ListByContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	return scope.Filter(questions), nil
}

func (s *ContestService) Question(ctx context.Context, id int) (types.Question, error) {
	return s.questions.Get(ctx, id)
}

func (s *ContestService) CreateQuestion(ctx context.Context, question types.Question) (types.Question, error) {
	if err := validateQuestion(question); err != nil {
		return types.Question{}, err
	}
	if _, err := s.contests.Get(ctx, question.ContestID); err != nil {
		return types.Question{}, err
	}
	return s.questions.Create(ctx, question)
}

// UpdateQuestion replaces a question's metadata. Questions never move
// between contests.
func (s *ContestService) UpdateQuestion(ctx context.Context, question types.Question) (types.Question, error) {
	current, err := s.questions.Get(ctx, question.ID)
	if err != nil {
		return types.Question{}, err
	}
	question.ContestID = current.ContestID
	if err := validateQuestion(question); err != nil {
		return types.Question{}, err
	}
	// Samples imported from a bundle survive metadata edits.
	if question.SampleBundle.ObjectKey == "" {
		question.SampleBundle = current.SampleBundle
	}
	return s.questions.Update(ctx, question)
}

// DeleteQuestion removes a question and its archived sample bundle.
func (s *ContestService) DeleteQuestion(ctx context.Context, id int) error {
	question, err := s.questions.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.questions.Delete(ctx, id); err != nil {
		return err
	}
	s.dropBundle(ctx, id, question.SampleBundle.ObjectKey)
	return nil
}

// dropBundle removes an archived bundle. The question no longer points at
// it, so a failure only leaves an orphaned object behind.
func (s *ContestService) dropBundle(ctx context.Context, questionID int, key string) {
	if s.storage == nil || key == "" {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		s.log.Warn("failed to delete sample bundle",
			zap.Int("question_id", questionID),
			zap.String("key", key),
			zap.Error(err))
	}
}

func validateContest(contest types.Contest) error {
	if strings.TrimSpace(contest.Name) == "" {
		return invalid("name", "is required")
	}
	if contest.Duration <= 0 {
		return invalid("duration", "must be a positive number of minutes")
	}
	if contest.StartAt.IsZero() {
		return invalid("start_at", "is required")
	}
	if contest.EndAt.IsZero() {
		return invalid("end_at", "is required")
	}
	if !contest.EndAt.After(contest.StartAt) {
		return invalid("end_at", "must be after start_at")
	}
	return nil
}

func validateQuestion(question types.Question) error {
	if question.ContestID < 1 {
		return invalid("contest_id", "is required")
	}
	if strings.TrimSpace(question.Title) == "" {
		return invalid("title", "is required")
	}
	if strings.TrimSpace(question.Description) == "" {
		return invalid("description", "is required")
	}
	if len(question.SampleOutputs) > len(question.SampleInputs) {
		return invalid("sample_outputs", fmt.Sprintf("has %d entries for %d sample inputs",
			len(question.SampleOutputs), len(question.SampleInputs)))
	}
	return nil
}
