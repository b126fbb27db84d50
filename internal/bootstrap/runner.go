package bootstrap

import (
	"context"
	"time"

	"github.com/google/uuid"

	"thunderctl/internal/api"
	"thunderctl/pkg/logging"
)

// Runner executes bootstrap steps sequentially against a Thunder server.
// Steps share one RunContext, so identifiers stored by an earlier step are
// visible to every later step. There is no parallel mode: ordering is the
// contract that makes identifier threading work.
type Runner struct {
	client   *api.Client
	loader   StepLoader
	reporter Reporter
}

// NewRunner creates a runner that provisions through the given API client
// and reports progress through the given reporter.
func NewRunner(client *api.Client, loader StepLoader, reporter Reporter) *Runner {
	return &Runner{
		client:   client,
		loader:   loader,
		reporter: reporter,
	}
}

// Run executes the given steps in order and returns the aggregated summary.
// Steps excluded by skip/only filters are recorded as skipped. When fail-fast
// is enabled the first failing step aborts the run; steps after the abort are
// neither executed nor counted as skipped. A non-nil *RunError is returned
// when any executed step failed.
func (r *Runner) Run(ctx context.Context, opts RunOptions, steps []Step) (*RunSummary, error) {
	summary := &RunSummary{
		RunID:      uuid.New().String(),
		Discovered: len(steps),
		StartTime:  time.Now(),
		Options:    opts,
		Steps:      make([]StepResult, 0, len(steps)),
	}

	logging.Info("Bootstrap", "Starting run %s: %d steps discovered", summary.RunID, summary.Discovered)
	r.reporter.ReportStart(opts, summary.Discovered)

	included := make(map[string]bool, len(steps))
	for _, step := range r.loader.FilterSteps(steps, opts) {
		included[step.Source] = true
	}

	runCtx := NewRunContext()
	prov := newProvisioner(r.client, runCtx)

	for _, step := range steps {
		if ctx.Err() != nil {
			logging.Warn("Bootstrap", "Run %s interrupted before step %s", summary.RunID, step.Name)
			break
		}

		if !included[step.Source] {
			result := skippedResult(step)
			summary.Steps = append(summary.Steps, result)
			updateCounters(summary, result)
			r.reporter.ReportStepResult(result)
			continue
		}

		r.reporter.ReportStepStart(step)
		result := r.runStep(ctx, step, opts, prov)
		summary.Steps = append(summary.Steps, result)
		summary.Executed++
		updateCounters(summary, result)
		r.reporter.ReportStepResult(result)

		if opts.FailFast && result.Status == StatusFailed {
			logging.Warn("Bootstrap", "Step %s failed, aborting run (fail-fast)", step.Name)
			break
		}
	}

	summary.EndTime = time.Now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime)

	logging.Info("Bootstrap", "Run %s finished: %d executed, %d succeeded, %d failed, %d skipped",
		summary.RunID, summary.Executed, summary.Succeeded, summary.Failed, summary.Skipped)
	r.reporter.ReportSummary(*summary)

	if summary.Failed > 0 {
		return summary, &RunError{Summary: summary}
	}
	return summary, nil
}

// runStep provisions every resource of one step. The first failing resource
// fails the step; remaining resources are not attempted because later
// resources may reference identifiers the failed one was supposed to store.
func (r *Runner) runStep(ctx context.Context, step Step, opts RunOptions, prov *provisioner) StepResult {
	result := StepResult{
		Name:      step.Name,
		Status:    StatusSucceeded,
		StartTime: time.Now(),
		Resources: make([]ResourceResult, 0, len(step.Resources)),
	}

	timeout := opts.StepTimeout
	if step.Timeout > 0 {
		timeout = step.Timeout
	}

	stepCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	for _, res := range step.Resources {
		resourceResult, err := prov.apply(stepCtx, res)
		if err != nil {
			result.Status = StatusFailed
			result.Error = err.Error()
			break
		}
		result.Resources = append(result.Resources, resourceResult)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	return result
}

func skippedResult(step Step) StepResult {
	now := time.Now()
	return StepResult{
		Name:      step.Name,
		Status:    StatusSkipped,
		StartTime: now,
		EndTime:   now,
	}
}

func updateCounters(summary *RunSummary, result StepResult) {
	switch result.Status {
	case StatusSucceeded:
		summary.Succeeded++
	case StatusFailed:
		summary.Failed++
	case StatusSkipped:
		summary.Skipped++
	}

	for _, res := range result.Resources {
		switch res.Outcome {
		case OutcomeCreated:
			summary.Created++
		case OutcomeAdopted:
			summary.Adopted++
		}
	}
}
