package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/devicelab-dev/uiharness/pkg/core"
)

// ReportVersion is the report schema version.
const ReportVersion = "1.0.0"

// Report is the JSON summary of a run over one or more command files.
type Report struct {
	Version   string       `json:"version"`
	Status    core.Status  `json:"status"`
	Target    string       `json:"target"`
	StartTime time.Time    `json:"startTime"`
	EndTime   time.Time    `json:"endTime"`
	Summary   Summary      `json:"summary"`
	Files     []FileReport `json:"files"`
}

// Summary counts steps across all files.
type Summary struct {
	Files   int `json:"files"`
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// FileReport is the outcome of one command file.
type FileReport struct {
	Path     string       `json:"path"`
	Status   core.Status  `json:"status"`
	Duration int64        `json:"duration"` // milliseconds
	Steps    []StepReport `json:"steps"`
}

// StepReport is the outcome of one command.
type StepReport struct {
	Index    int              `json:"index"`
	Command  string           `json:"command"`
	Status   StepStatus       `json:"status"`
	Duration int64            `json:"duration"`
	Texts    []core.TextEntry `json:"texts,omitempty"`
	Error    *ErrorInfo       `json:"error,omitempty"`
}

// ErrorInfo is a failed step's error.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewReport builds a report from per-file results; paths[i] names results[i].
func NewReport(target string, start time.Time, paths []string, results []*RunResult) *Report {
	rep := &Report{
		Version:   ReportVersion,
		Status:    core.StatusSuccess,
		Target:    target,
		StartTime: start,
		EndTime:   time.Now(),
		Files:     make([]FileReport, 0, len(results)),
	}

	for i, res := range results {
		fr := FileReport{
			Path:     paths[i],
			Status:   res.Status,
			Duration: res.Duration,
			Steps:    make([]StepReport, len(res.Steps)),
		}
		for j, step := range res.Steps {
			sr := StepReport{
				Index:    step.Index,
				Command:  step.Command.Describe(),
				Status:   step.Status,
				Duration: step.Duration,
				Texts:    step.Texts,
			}
			if step.Error != nil {
				execErr := core.AsExecutionError(step.Error)
				sr.Error = &ErrorInfo{Code: execErr.Code, Message: execErr.Error()}
			}
			fr.Steps[j] = sr
		}

		rep.Files = append(rep.Files, fr)
		rep.Summary.Files++
		rep.Summary.Total += res.TotalSteps
		rep.Summary.Passed += res.PassedSteps
		rep.Summary.Failed += res.FailedSteps
		rep.Summary.Skipped += res.SkippedSteps
		if res.Status != core.StatusSuccess {
			rep.Status = core.StatusError
		}
	}
	return rep
}

// WriteReport writes the report as indented JSON. The file is replaced
// atomically so pollers never see a partial document.
func WriteReport(path string, rep *Report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".report-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename report: %w", err)
	}
	return nil
}
