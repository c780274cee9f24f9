package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jjudge-oj/contestjudge/internal/executor"
	"github.com/jjudge-oj/contestjudge/internal/mq"
	"github.com/jjudge-oj/contestjudge/internal/session"
	"github.com/jjudge-oj/contestjudge/internal/store"
	"github.com/jjudge-oj/contestjudge/internal/wrapper"
	"github.com/jjudge-oj/contestjudge/types"
)

// SubmissionRepository appends submission records.
type SubmissionRepository interface {
	Create(ctx context.Context, submission types.Submission) (types.Submission, error)
	ListByParticipant(ctx context.Context, contestID, userID int) ([]types.Submission, error)
}

// EventPublisher announces judging outcomes.
type EventPublisher interface {
	SubmissionJudged(ctx context.Context, ev mq.SubmissionJudged) error
	ContestCompleted(ctx context.Context, ev mq.ContestCompleted) error
}

// Sessions is the part of SessionService the judge depends on.
type Sessions interface {
	Live(ctx context.Context, userID, contestID int) (*session.State, error)
	MarkSolved(ctx context.Context, st *session.State, questionID int) error
	End(ctx context.Context, userID, contestID int, reason types.EndReason) (bool, error)
}

// JudgeService runs participant code against a question's sample cases.
type JudgeService struct {
	exec        executor.Executor
	catalog     *wrapper.Catalog
	questions   QuestionRepository
	submissions SubmissionRepository
	sessions    Sessions
	events      EventPublisher
	now         func() time.Time
	log         *zap.Logger
}

func NewJudgeService(
	exec executor.Executor,
	catalog *wrapper.Catalog,
	questions QuestionRepository,
	submissions SubmissionRepository,
	sessions Sessions,
	events EventPublisher,
	log *zap.Logger,
) *JudgeService {
	if log == nil {
		log = zap.NewNop()
	}
	return &JudgeService{
		exec:        exec,
		catalog:     catalog,
		questions:   questions,
		submissions: submissions,
		sessions:    sessions,
		events:      events,
		now:         time.Now,
		log:         log,
	}
}

// RunSingle executes code against one sample case and returns the raw
// program output. Nothing is persisted.
func (s *JudgeService) RunSingle(ctx context.Context, lang wrapper.Language, code string, c types.SampleCase, specs []types.ParameterSpec) (string, error) {
	artifact := wrapper.Build(lang, code, c.Input, specs)
	result, err := s.exec.Execute(ctx, executor.Request{
		Language: lang.Runtime,
		Version:  lang.Version,
		Source:   artifact.Source,
		Stdin:    artifact.Stdin,
	})
	if err != nil {
		return "", err
	}
	return result.Text(), nil
}

// RunAll executes every case in index order, one executor call at a time.
// A failing case is recorded and does not stop the remaining ones.
func (s *JudgeService) RunAll(ctx context.Context, lang wrapper.Language, code string, cases []types.SampleCase, specs []types.ParameterSpec) ([]types.TestResult, types.Verdict) {
	results := make([]types.TestResult, 0, len(cases))
	for _, c := range cases {
		result := types.TestResult{Index: c.Index, Input: c.Input, Expected: c.Output}

		output, err := s.RunSingle(ctx, lang, code, c, specs)
		if err != nil {
			msg := err.Error()
			result.Error = &msg
			s.log.Warn("sample case failed to execute",
				zap.Int("index", c.Index),
				zap.String("language", lang.Name),
				zap.Error(err))
		} else {
			actual := strings.TrimSpace(output)
			result.Actual = &actual
			result.Passed = actual == strings.TrimSpace(c.Output)
		}
		results = append(results, result)
	}
	return results, types.NewVerdict(results)
}

// RunRequest is a manual "try it" run of one sample case.
type RunRequest struct {
	UserID     int
	ContestID  int
	QuestionID int
	Language   string
	Code       string
	CaseIndex  int
}

// RunOutcome is the result of a RunRequest.
type RunOutcome struct {
	Case   types.SampleCase `json:"case"`
	Output string           `json:"output"`
	Error  string           `json:"error,omitempty"`
}

// Run executes one sample case of the question for a running attempt.
// Execution failures are reported in the outcome, not as an error.
func (s *JudgeService) Run(ctx context.Context, req RunRequest) (RunOutcome, error) {
	_, question, lang, err := s.prepare(ctx, req.UserID, req.ContestID, req.QuestionID, req.Language)
	if err != nil {
		return RunOutcome{}, err
	}

	cases := question.SampleCases()
	if len(cases) == 0 {
		return RunOutcome{}, invalid("question", "has no sample cases")
	}
	if req.CaseIndex < 0 || req.CaseIndex >= len(cases) {
		return RunOutcome{}, invalid("case", "index out of range")
	}

	c := cases[req.CaseIndex]
	output, err := s.RunSingle(ctx, lang, req.Code, c, question.Inputs)
	outcome := RunOutcome{Case: c, Output: output}
	if err != nil {
		outcome.Error = err.Error()
	}
	return outcome, nil
}

// SubmitRequest grades code for a question in a running attempt.
type SubmitRequest struct {
	UserID     int
	ContestID  int
	QuestionID int
	Language   string
	Code       string
}

// SubmitOutcome is the graded result of a submission.
type SubmitOutcome struct {
	Submission types.Submission   `json:"submission"`
	Results    []types.TestResult `json:"results"`
	Verdict    types.Verdict      `json:"verdict"`

	// Discarded is set when the attempt ended while judging; nothing was
	// recorded.
	Discarded bool `json:"discarded"`

	// Completed is set when this submission solved the last question in
	// scope and ended the attempt.
	Completed bool `json:"completed"`
}

// Submit judges every sample case, appends a submission record and updates
// the solved-set. When the attempt ends while judging, the result is
// returned but not acted upon.
func (s *JudgeService) Submit(ctx context.Context, req SubmitRequest) (SubmitOutcome, error) {
	st, question, lang, err := s.prepare(ctx, req.UserID, req.ContestID, req.QuestionID, req.Language)
	if err != nil {
		return SubmitOutcome{}, err
	}

	results, verdict := s.RunAll(ctx, lang, req.Code, question.SampleCases(), question.Inputs)
	outcome := SubmitOutcome{Results: results, Verdict: verdict}

	log := s.log.With(
		zap.Int("user_id", req.UserID),
		zap.Int("contest_id", req.ContestID),
		zap.Int("question_id", req.QuestionID))

	if !st.Running() {
		log.Info("discarding verdict for ended session", zap.String("reason", string(st.EndReason())))
		outcome.Discarded = true
		return outcome, nil
	}

	submission, err := s.submissions.Create(ctx, types.Submission{
		ContestID:   req.ContestID,
		QuestionID:  req.QuestionID,
		UserID:      req.UserID,
		Code:        req.Code,
		Language:    lang.Name,
		Status:      verdict.Status(),
		TestSummary: verdict.Summary(),
		TestResults: results,
		SubmittedAt: s.now(),
	})
	if err != nil {
		return SubmitOutcome{}, err
	}
	outcome.Submission = submission
	log.Info("submission judged",
		zap.Int("submission_id", submission.ID),
		zap.String("status", string(submission.Status)),
		zap.Int("passed", verdict.PassedCount),
		zap.Int("total", verdict.Total))

	if err := s.events.SubmissionJudged(ctx, mq.SubmissionJudged{
		SubmissionID: submission.ID,
		ContestID:    submission.ContestID,
		QuestionID:   submission.QuestionID,
		UserID:       submission.UserID,
		Language:     submission.Language,
		Status:       submission.Status,
		PassedCount:  verdict.PassedCount,
		Total:        verdict.Total,
		SubmittedAt:  submission.SubmittedAt,
	}); err != nil {
		log.Warn("failed to publish submission event", zap.Error(err))
	}

	if !verdict.AllPassed {
		return outcome, nil
	}
	if err := s.sessions.MarkSolved(ctx, st, req.QuestionID); err != nil {
		log.Warn("failed to persist solved question", zap.Error(err))
	}

	completed, err := s.completeIfSolved(ctx, st)
	if err != nil {
		log.Error("failed to complete contest", zap.Error(err))
	}
	outcome.Completed = completed
	return outcome, nil
}

// Submissions lists a participant's submissions in a contest.
func (s *JudgeService) Submissions(ctx context.Context, contestID, userID int) ([]types.Submission, error) {
	return s.submissions.ListByParticipant(ctx, contestID, userID)
}

func (s *JudgeService) completeIfSolved(ctx context.Context, st *session.State) (bool, error) {
	questions, err := s.questions.ListByContest(ctx, st.ContestID())
	if err != nil {
		return false, err
	}
	scoped := st.Level().Filter(questions)
	ids := make([]int, len(scoped))
	for i, q := range scoped {
		ids[i] = q.ID
	}
	if !st.Covers(ids) {
		return false, nil
	}

	ended, err := s.sessions.End(ctx, st.UserID(), st.ContestID(), types.EndCompleted)
	if err != nil || !ended {
		return false, err
	}
	if err := s.events.ContestCompleted(ctx, mq.ContestCompleted{
		ContestID: st.ContestID(),
		UserID:    st.UserID(),
		Level:     st.Level(),
		Solved:    st.Solved(),
		EndedAt:   s.now(),
	}); err != nil {
		s.log.Warn("failed to publish completion event", zap.Error(err))
	}
	return true, nil
}

// prepare checks the attempt is running and resolves the question and
// language for it.
func (s *JudgeService) prepare(ctx context.Context, userID, contestID, questionID int, language string) (*session.State, types.Question, wrapper.Language, error) {
	lang, ok := s.catalog.Lookup(language)
	if !ok {
		return nil, types.Question{}, wrapper.Language{}, invalid("language", "unsupported language "+language)
	}

	st, err := s.sessions.Live(ctx, userID, contestID)
	if err != nil {
		return nil, types.Question{}, wrapper.Language{}, err
	}

	question, err := s.questions.Get(ctx, questionID)
	if err != nil {
		return nil, types.Question{}, wrapper.Language{}, err
	}
	if question.ContestID != contestID {
		return nil, types.Question{}, wrapper.Language{}, store.ErrNotFound
	}
	if !st.Level().Includes(question.Level) {
		return nil, types.Question{}, wrapper.Language{}, invalid("question", "is not part of this attempt's level")
	}
	return st, question, lang, nil
}
