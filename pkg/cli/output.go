package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/devicelab-dev/uiharness/pkg/runner"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// Slow step threshold in milliseconds
const slowThresholdMs = 1000

// colorsEnabled determines if ANSI colors should be used
var colorsEnabled = true

func init() {
	// Respect NO_COLOR environment variable
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
		return
	}
	// Check if stdout is a terminal
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			colorsEnabled = false
		}
	}
}

// color returns the color code if colors are enabled, empty string otherwise
func color(c string) string {
	if colorsEnabled {
		return c
	}
	return ""
}

func printFileStart(w io.Writer, idx, total int, path string) {
	fmt.Fprintf(w, "\n  %s[%d/%d]%s %s%s%s\n",
		color(colorCyan), idx+1, total, color(colorReset),
		color(colorBold), path, color(colorReset))
	fmt.Fprintln(w, strings.Repeat("─", 60))
}

// stepPrinter returns the live progress callback for the runner.
func stepPrinter(w io.Writer) func(idx int, desc string, passed bool, durationMs int64, errMsg string) {
	return func(idx int, desc string, passed bool, durationMs int64, errMsg string) {
		durStr := formatDuration(durationMs)
		if passed {
			symbol, symbolColor, durColor := "✓", color(colorGreen), ""
			if durationMs >= slowThresholdMs {
				symbol, symbolColor, durColor = "⚠", color(colorYellow), color(colorYellow)
			}
			fmt.Fprintf(w, "    %s%s%s %s %s(%s)%s\n",
				symbolColor, symbol, color(colorReset), desc, durColor, durStr, color(colorReset))
			return
		}
		fmt.Fprintf(w, "    %s✗%s %s (%s)\n", color(colorRed), color(colorReset), desc, durStr)
		if errMsg != "" {
			fmt.Fprintf(w, "      %s╰─%s %s\n", color(colorGray), color(colorReset), errMsg)
		}
	}
}

func printSummary(w io.Writer, results []*runner.RunResult) {
	var total, passed, failed, skipped int
	var duration int64
	failedFiles := 0
	for _, r := range results {
		total += r.TotalSteps
		passed += r.PassedSteps
		failed += r.FailedSteps
		skipped += r.SkippedSteps
		duration += r.Duration
		if r.FailedSteps > 0 {
			failedFiles++
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("═", 60))
	status := color(colorGreen) + "PASSED" + color(colorReset)
	if failedFiles > 0 {
		status = color(colorRed) + "FAILED" + color(colorReset)
	}
	fmt.Fprintf(w, "  %s  files: %d/%d passed, steps: %d passed, %d failed, %d skipped of %d  %s(%s)%s\n",
		status, len(results)-failedFiles, len(results), passed, failed, skipped, total,
		color(colorGray), formatDuration(duration), color(colorReset))
	fmt.Fprintln(w, strings.Repeat("═", 60))
}

// formatDuration formats milliseconds to a human-readable string.
// Shows milliseconds for values < 1s, seconds otherwise.
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	mins := ms / 60000
	secs := (ms % 60000) / 1000
	return fmt.Sprintf("%dm %ds", mins, secs)
}
