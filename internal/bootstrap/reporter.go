package bootstrap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// consoleReporter implements the Reporter interface for terminal output.
type consoleReporter struct {
	verbose    bool
	reportPath string
}

// NewConsoleReporter creates a reporter that prints progress to stdout and,
// when reportPath is non-empty, saves the full run summary as JSON.
func NewConsoleReporter(verbose bool, reportPath string) Reporter {
	return &consoleReporter{
		verbose:    verbose,
		reportPath: reportPath,
	}
}

// ReportStart is called once before the first step runs.
func (r *consoleReporter) ReportStart(opts RunOptions, discovered int) {
	fmt.Printf("🧪 Starting Thunder bootstrap\n")
	fmt.Printf("📦 Discovered %d step files\n", discovered)

	if r.verbose {
		fmt.Printf("\n⚙️  Configuration:\n")
		fmt.Printf("   • Fail fast: %t\n", opts.FailFast)
		fmt.Printf("   • Skip: %s\n", stringOrDefault(opts.Skip, "none"))
		fmt.Printf("   • Only: %s\n", stringOrDefault(opts.Only, "none"))
		fmt.Printf("   • Step timeout: %v\n", opts.StepTimeout)
		if r.reportPath != "" {
			fmt.Printf("   • Report path: %s\n", r.reportPath)
		}
		fmt.Printf("\n")
	}
}

// ReportStepStart is called when a step begins executing. Skipped steps do
// not get a start event, only a result.
func (r *consoleReporter) ReportStepStart(step Step) {
	if r.verbose {
		fmt.Printf("🎯 Running step: %s\n", step.Name)
		if step.Description != "" {
			fmt.Printf("   📝 Description: %s\n", step.Description)
		}
		fmt.Printf("   📋 Resources: %d\n", len(step.Resources))
		if step.Timeout > 0 {
			fmt.Printf("   ⏱️  Timeout: %v\n", step.Timeout)
		}
	} else {
		fmt.Printf("🎯 %s... ", step.Name)
	}
}

// ReportStepResult is called when a step completes or is skipped.
func (r *consoleReporter) ReportStepResult(result StepResult) {
	symbol := statusSymbol(result.Status)

	if result.Status == StatusSkipped {
		fmt.Printf("%s %s (skipped by filter)\n", symbol, result.Name)
		return
	}

	if r.verbose {
		fmt.Printf("%s Step completed: %s (%v)\n", symbol, result.Name, result.Duration)
		for _, res := range result.Resources {
			fmt.Printf("   • %s: %s", res.ID, res.Outcome)
			if res.StoredID != "" {
				fmt.Printf(" (id=%s)", res.StoredID)
			}
			fmt.Printf("\n")
		}
		if result.Error != "" {
			fmt.Printf("   ❌ Error: %s\n", result.Error)
		}
		fmt.Printf("\n")
	} else {
		// Sequential mode: the start line already printed "🎯 name... ".
		fmt.Printf("%s (%v)\n", symbol, result.Duration)
		if result.Error != "" {
			fmt.Printf("   ❌ %s\n", result.Error)
		}
	}
}

// ReportSummary is called once after the run finishes.
func (r *consoleReporter) ReportSummary(summary RunSummary) {
	fmt.Printf("\n🏁 Bootstrap Complete\n")
	fmt.Printf("⏱️  Duration: %v\n", summary.Duration)
	fmt.Printf("📊 Results:\n")
	fmt.Printf("   ✅ Succeeded: %d\n", summary.Succeeded)

	if summary.Failed > 0 {
		fmt.Printf("   ❌ Failed: %d\n", summary.Failed)
	}
	if summary.Skipped > 0 {
		fmt.Printf("   ⏭️  Skipped: %d\n", summary.Skipped)
	}

	fmt.Printf("   📈 Executed: %d of %d discovered\n", summary.Executed, summary.Discovered)
	fmt.Printf("   🆕 Created: %d\n", summary.Created)
	fmt.Printf("   ♻️  Adopted: %d\n", summary.Adopted)

	if len(summary.Steps) > 0 {
		fmt.Printf("\n")
		renderStepTable(summary.Steps)
	}

	if summary.Failed == 0 {
		fmt.Printf("\n🎉 All steps succeeded!\n")
	} else {
		fmt.Printf("\n💔 Some steps failed\n")
	}

	if r.reportPath != "" {
		if err := r.saveReport(summary); err != nil {
			fmt.Printf("⚠️  Failed to save report: %v\n", err)
		} else {
			fmt.Printf("📄 Report saved to: %s\n", r.reportPath)
		}
	}
}

// saveReport writes the run summary as indented JSON to the report path.
func (r *consoleReporter) saveReport(summary RunSummary) error {
	if dir := filepath.Dir(r.reportPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	jsonData, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report to JSON: %w", err)
	}

	if err := os.WriteFile(r.reportPath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}

	return nil
}

func renderStepTable(steps []StepResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"STEP", "STATUS", "CREATED", "ADOPTED", "DURATION"})

	for _, step := range steps {
		created, adopted := 0, 0
		for _, res := range step.Resources {
			switch res.Outcome {
			case OutcomeCreated:
				created++
			case OutcomeAdopted:
				adopted++
			}
		}
		t.AppendRow(table.Row{
			step.Name,
			coloredStatus(step.Status),
			created,
			adopted,
			step.Duration.Round(time.Millisecond),
		})
	}

	t.Render()
}

func coloredStatus(status StepStatus) string {
	switch status {
	case StatusSucceeded:
		return text.FgGreen.Sprint(string(status))
	case StatusFailed:
		return text.FgRed.Sprint(string(status))
	case StatusSkipped:
		return text.FgHiBlack.Sprint(string(status))
	default:
		return string(status)
	}
}

func statusSymbol(status StepStatus) string {
	switch status {
	case StatusSucceeded:
		return "✅"
	case StatusFailed:
		return "❌"
	case StatusSkipped:
		return "⏭️"
	default:
		return "❓"
	}
}

func stringOrDefault(s, defaultValue string) string {
	if s == "" {
		return defaultValue
	}
	return s
}
