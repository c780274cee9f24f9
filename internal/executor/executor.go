package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrExecutionTimeout is wrapped by an ExecutionError when the client-side
// deadline expired before the executor answered.
var ErrExecutionTimeout = errors.New("execution timed out")

// Executor runs one program in the external sandbox.
type Executor interface {
	Execute(ctx context.Context, req Request) (Result, error)
}

// Request is a single run of a program.
type Request struct {
	Language string
	Version  string
	Source   string
	Stdin    string
}

// Result is the decoded executor response. Pointer fields distinguish an
// absent field from an empty one.
type Result struct {
	Run      *RunResult      `json:"run,omitempty"`
	Compile  json.RawMessage `json:"compile,omitempty"`
	Language string          `json:"language,omitempty"`
	Version  string          `json:"version,omitempty"`

	// Some deployments answer with the run fields at the top level.
	Output *string `json:"output,omitempty"`
	Stdout *string `json:"stdout,omitempty"`
	Stderr *string `json:"stderr,omitempty"`
}

// RunResult describes the run stage of an execution.
type RunResult struct {
	Output *string `json:"output,omitempty"`
	Stdout *string `json:"stdout,omitempty"`
	Stderr *string `json:"stderr,omitempty"`
	Code   *int    `json:"code,omitempty"`
	Signal *string `json:"signal,omitempty"`
}

// Text extracts the program's primary output: the combined output if
// present, otherwise stdout, otherwise stderr.
func (r Result) Text() string {
	output, stdout, stderr := r.Output, r.Stdout, r.Stderr
	if r.Run != nil {
		output, stdout, stderr = r.Run.Output, r.Run.Stdout, r.Run.Stderr
	}
	for _, s := range []*string{output, stdout, stderr} {
		if s != nil {
			return *s
		}
	}
	return ""
}

// ExecutorError is returned when the executor answered with a failure status.
type ExecutorError struct {
	StatusCode int
	Details    string
}

func (e *ExecutorError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("executor error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("executor error: status %d: %s", e.StatusCode, e.Details)
}

// ExecutionError is returned when the executor could not be reached or did
// not answer in time.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string {
	if errors.Is(e.Err, ErrExecutionTimeout) {
		return "execution timed out waiting for the executor"
	}
	return fmt.Sprintf("execution failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
