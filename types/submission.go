package types

import "time"

// Submission is the append-only record of one judged attempt.
type Submission struct {
	// ID is the unique identifier of the submission.
	ID int `json:"id" db:"id"`

	// ContestID identifies the contest the attempt was made in.
	ContestID int `json:"contest_id" db:"contest_id"`

	// QuestionID identifies the question this submission answers.
	QuestionID int `json:"question_id" db:"question_id"`

	// UserID identifies the participant who submitted.
	UserID int `json:"user_id" db:"user_id"`

	// Code is the participant's source code exactly as submitted,
	// before any wrapper was generated around it.
	Code string `json:"code" db:"code"`

	// Language is the catalogue name of the language used.
	Language string `json:"language" db:"language"`

	// Status is the final outcome of judging the submission.
	Status SubmissionStatus `json:"status" db:"status"`

	// TestSummary counts passed and total sample cases.
	TestSummary TestSummary `json:"test_summary" db:"test_summary"`

	// TestResults holds the per-case results in sample order.
	// This field may be omitted for list views.
	TestResults []TestResult `json:"test_results,omitempty" db:"test_results"`

	// SubmittedAt is the timestamp when the submission was recorded.
	SubmittedAt time.Time `json:"submitted_at" db:"submitted_at"`
}

// SubmissionStatus is the outcome stored with a submission.
type SubmissionStatus string

// Supported submission statuses.
const (
	// SubmissionCorrect indicates every sample case passed.
	SubmissionCorrect SubmissionStatus = "correct"

	// SubmissionIncorrect indicates at least one case failed or none ran.
	SubmissionIncorrect SubmissionStatus = "incorrect"
)

// TestSummary is the persisted tally of a verdict.
type TestSummary struct {
	PassedCount int `json:"passed_count"`
	Total       int `json:"total"`
}

// TestResult is the outcome of running one sample case. It is created once
// by the judge and never modified afterwards.
type TestResult struct {
	// Index is the ordinal of the sample case within the question.
	Index int `json:"index"`

	// Input is the raw sample input text.
	Input string `json:"input"`

	// Expected is the expected output as authored, before trimming.
	Expected string `json:"expected"`

	// Actual is the trimmed program output. It is nil when execution failed.
	Actual *string `json:"actual"`

	// Passed reports whether the trimmed outputs were identical.
	Passed bool `json:"passed"`

	// Error carries a human-readable execution failure, if any.
	Error *string `json:"error"`
}

// Verdict aggregates the results of one submission attempt.
type Verdict struct {
	PassedCount int  `json:"passed_count"`
	Total       int  `json:"total"`
	AllPassed   bool `json:"all_passed"`
}

// NewVerdict tallies results. An empty result set never passes.
func NewVerdict(results []TestResult) Verdict {
	v := Verdict{Total: len(results)}
	for _, r := range results {
		if r.Passed {
			v.PassedCount++
		}
	}
	v.AllPassed = v.Total > 0 && v.PassedCount == v.Total
	return v
}

// Status maps the verdict onto the stored submission status.
func (v Verdict) Status() SubmissionStatus {
	if v.AllPassed {
		return SubmissionCorrect
	}
	return SubmissionIncorrect
}

// Summary returns the persisted tally.
func (v Verdict) Summary() TestSummary {
	return TestSummary{PassedCount: v.PassedCount, Total: v.Total}
}
