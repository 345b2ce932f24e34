// Package runner executes command files against an engine or a remote server.
package runner

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/devicelab-dev/uiharness/pkg/command"
	"github.com/devicelab-dev/uiharness/pkg/core"
)

// Target applies a single command. *engine.Engine and *client.Client both
// satisfy it.
type Target interface {
	Apply(ctx context.Context, cmd command.Command) *core.CommandResult
}

// Settler is implemented by targets whose tap effects may land after the
// tap returns. The runner waits for them before reading state.
type Settler interface {
	WaitIdle(ctx context.Context) error
}

// StepStatus is the outcome of one step.
type StepStatus string

// Step statuses.
const (
	StepPassed  StepStatus = "passed"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// RunnerConfig configures the runner.
type RunnerConfig struct {
	ContinueOnFail bool // Keep going after a failed step

	// Live progress callback
	OnStepComplete func(idx int, desc string, passed bool, durationMs int64, err string)
}

// StepResult is the outcome of one command.
type StepResult struct {
	Index    int
	Command  command.Command
	Status   StepStatus
	Duration int64 // milliseconds
	Texts    []core.TextEntry
	Error    error
}

// RunResult contains the outcome of a run.
type RunResult struct {
	Status       core.Status
	TotalSteps   int
	PassedSteps  int
	FailedSteps  int
	SkippedSteps int
	Duration     int64 // Total duration in milliseconds
	Steps        []StepResult
}

// Runner applies commands in order.
type Runner struct {
	config RunnerConfig
	target Target
}

// New creates a new Runner.
func New(target Target, cfg RunnerConfig) *Runner {
	return &Runner{
		config: cfg,
		target: target,
	}
}

// Run executes cmds sequentially. After the first failure the remaining
// steps are skipped unless ContinueOnFail is set; a cancelled ctx skips the
// rest as well.
func (r *Runner) Run(ctx context.Context, cmds []command.Command) *RunResult {
	start := time.Now()
	result := &RunResult{
		Status:     core.StatusSuccess,
		TotalSteps: len(cmds),
		Steps:      make([]StepResult, len(cmds)),
	}

	stopped := false
	for i, cmd := range cmds {
		if stopped || ctx.Err() != nil {
			result.Steps[i] = StepResult{Index: i, Command: cmd, Status: StepSkipped}
			result.SkippedSteps++
			continue
		}

		step := r.runStep(ctx, i, cmd)
		result.Steps[i] = step

		errMsg := ""
		if step.Error != nil {
			errMsg = step.Error.Error()
		}
		if r.config.OnStepComplete != nil {
			r.config.OnStepComplete(i, cmd.Describe(), step.Status == StepPassed, step.Duration, errMsg)
		}

		if step.Status == StepPassed {
			result.PassedSteps++
			continue
		}
		result.FailedSteps++
		result.Status = core.StatusError
		if !r.config.ContinueOnFail {
			stopped = true
		}
	}

	result.Duration = time.Since(start).Milliseconds()
	return result
}

func (r *Runner) runStep(ctx context.Context, idx int, cmd command.Command) StepResult {
	start := time.Now()
	step := StepResult{Index: idx, Command: cmd}

	if settler, ok := r.target.(Settler); ok && !cmd.Mutates() {
		if err := settler.WaitIdle(ctx); err != nil {
			step.Duration = time.Since(start).Milliseconds()
			step.Status = StepFailed
			step.Error = err
			return step
		}
	}

	var res *core.CommandResult
	if a, ok := cmd.(command.AssertTexts); ok {
		res = r.target.Apply(ctx, command.QueryTexts{Key: a.Key})
		if res.Error == nil {
			res.Error = checkTexts(a, res.Texts)
		}
	} else {
		res = r.target.Apply(ctx, cmd)
	}

	step.Duration = time.Since(start).Milliseconds()
	step.Texts = res.Texts
	step.Error = res.Error
	step.Status = StepPassed
	if res.Error != nil {
		step.Status = StepFailed
	}
	return step
}

func checkTexts(a command.AssertTexts, got []core.TextEntry) error {
	texts := make([]string, len(got))
	for i, e := range got {
		texts[i] = e.Text
	}
	if slices.Equal(texts, a.Want) {
		return nil
	}
	return core.ErrAssertionFailed.
		WithMessagef("texts for %q: want [%s], got [%s]", a.Key, quoteAll(a.Want), quoteAll(texts)).
		WithDetails(map[string]interface{}{"key": a.Key, "want": a.Want, "got": texts})
}

func quoteAll(ss []string) string {
	q := make([]string, len(ss))
	for i, s := range ss {
		q[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(q, " ")
}
