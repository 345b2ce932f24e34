package core

import "time"

// TextEntry is one {key, text} pair returned by a text query.
type TextEntry struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// CommandResult represents the outcome of applying a single command
type CommandResult struct {
	// Core outcome
	Status   Status        `json:"status"`
	Error    error         `json:"-"`
	Duration time.Duration `json:"-"`

	// Human-readable output
	Message string `json:"message,omitempty"`

	// Texts is set for text queries; always non-nil for them.
	Texts []TextEntry `json:"-"`
}

// Success creates a successful result.
func Success(msg string) *CommandResult {
	return &CommandResult{Status: StatusSuccess, Message: msg}
}

// Failure creates a failed result carrying err.
func Failure(err error) *CommandResult {
	return &CommandResult{Status: StatusError, Error: err}
}

// ExecError returns the result's error as an ExecutionError, or nil.
func (r *CommandResult) ExecError() *ExecutionError {
	return AsExecutionError(r.Error)
}
