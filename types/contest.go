package types

import (
	"strconv"
	"strings"
	"time"
)

// Contest represents a timed contest that groups a set of questions.
type Contest struct {
	// ID is the unique identifier of the contest.
	ID int `json:"id" db:"id"`

	// Name is the human-readable name of the contest.
	Name string `json:"name" db:"name"`

	// Duration is the time a participant has once they start the contest,
	// expressed in minutes.
	Duration int `json:"duration" db:"duration"`

	// CreatedBy identifies the admin who created the contest.
	CreatedBy int `json:"created_by" db:"created_by"`

	// StartAt is the earliest time participants may start the contest.
	StartAt time.Time `json:"start_at" db:"start_at"`

	// EndAt is the latest time participants may start the contest.
	EndAt time.Time `json:"end_at" db:"end_at"`

	// CreatedAt is the timestamp at which the contest was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the contest.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Question represents a single contest question with the metadata needed
// to generate runnable wrappers around a participant's solution.
type Question struct {
	// ID is the unique identifier of the question.
	ID int `json:"id" db:"id"`

	// ContestID identifies the contest this question belongs to.
	ContestID int `json:"contest_id" db:"contest_id"`

	// Title is the human-readable name of the question.
	Title string `json:"title" db:"title"`

	// Description contains the full question statement.
	Description string `json:"description" db:"description"`

	// Constraints lists input bounds shown alongside the statement.
	Constraints string `json:"constraints" db:"constraints"`

	// Level is the division the question belongs to. Levels 1 to 3 are the
	// regular divisions; anything else is grouped as "other".
	Level int `json:"level" db:"level"`

	// Inputs describes the parameters of the expected entry point, in
	// declaration order.
	Inputs []ParameterSpec `json:"inputs" db:"inputs"`

	// SampleInputs holds the literal sample input strings used for grading.
	SampleInputs []string `json:"sample_inputs" db:"sample_inputs"`

	// SampleOutputs holds the expected outputs matching SampleInputs.
	SampleOutputs []string `json:"sample_outputs" db:"sample_outputs"`

	// SampleInput is the legacy single sample input. It is only consulted
	// when SampleInputs is empty.
	SampleInput string `json:"sample_input,omitempty" db:"sample_input"`

	// SampleOutput is the legacy single sample output.
	SampleOutput string `json:"sample_output,omitempty" db:"sample_output"`

	// SampleBundle references the archived sample bundle, if one was uploaded.
	SampleBundle SampleBundle `json:"sample_bundle" db:"sample_bundle"`

	// CreatedAt is the timestamp at which the question was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the question.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SampleBundle points at an uploaded archive of sample cases kept in
// object storage.
type SampleBundle struct {
	// ObjectKey is the path of the archive in object storage.
	ObjectKey string `json:"object_key,omitempty"`

	// SHA256 is the hex encoded hash of the archive contents.
	SHA256 string `json:"sha256,omitempty"`
}

// SampleCase is one sample input/output pair at a stable ordinal index.
type SampleCase struct {
	Index  int    `json:"index"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

// SampleCases returns the question's sample pairs in index order. The
// sample arrays take precedence over the legacy single fields, and outputs
// are padded with empty strings up to the number of inputs.
func (q Question) SampleCases() []SampleCase {
	inputs := q.SampleInputs
	outputs := q.SampleOutputs
	if len(inputs) == 0 && q.SampleInput != "" {
		inputs = []string{q.SampleInput}
	}
	if len(outputs) == 0 && q.SampleOutput != "" {
		outputs = []string{q.SampleOutput}
	}

	cases := make([]SampleCase, len(inputs))
	for i, in := range inputs {
		cases[i] = SampleCase{Index: i, Input: in}
		if i < len(outputs) {
			cases[i].Output = outputs[i]
		}
	}
	return cases
}

// LevelScope restricts a session to one division of a contest.
// The empty scope covers every question.
type LevelScope string

// LevelOther selects questions whose level lies outside the regular divisions.
const LevelOther LevelScope = "other"

var regularLevels = []int{1, 2, 3}

// ParseLevelScope validates a raw level selector.
func ParseLevelScope(raw string) (LevelScope, bool) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" || raw == string(LevelOther) {
		return LevelScope(raw), true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return "", false
	}
	return LevelScope(strconv.Itoa(n)), true
}

// Includes reports whether a question of the given level is in scope.
func (s LevelScope) Includes(level int) bool {
	switch s {
	case "":
		return true
	case LevelOther:
		for _, l := range regularLevels {
			if l == level {
				return false
			}
		}
		return true
	default:
		return string(s) == strconv.Itoa(level)
	}
}

// Filter returns the questions that fall inside the scope, preserving order.
func (s LevelScope) Filter(questions []Question) []Question {
	out := make([]Question, 0, len(questions))
	for _, q := range questions {
		if s.Includes(q.Level) {
			out = append(out, q)
		}
	}
	return out
}
