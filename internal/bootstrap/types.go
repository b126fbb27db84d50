package bootstrap

import (
	"fmt"
	"time"
)

// StepStatus classifies the outcome of one provisioning step.
type StepStatus string

const (
	// StatusSucceeded means every resource in the step was created or adopted.
	StatusSucceeded StepStatus = "SUCCEEDED"
	// StatusFailed means a resource call was fatal (transport failure,
	// unexpected API status, unresolved identifier).
	StatusFailed StepStatus = "FAILED"
	// StatusSkipped means a skip/only filter excluded the step.
	StatusSkipped StepStatus = "SKIPPED"
)

// ResourceOutcome records how a resource ended up existing.
type ResourceOutcome string

const (
	// OutcomeCreated means the POST succeeded and the server created it.
	OutcomeCreated ResourceOutcome = "CREATED"
	// OutcomeAdopted means the resource already existed and its identifier
	// was looked up instead.
	OutcomeAdopted ResourceOutcome = "ADOPTED"
)

// Step is one provisioning step loaded from a file in the steps directory.
// Steps execute in lexicographic filename order; the numeric prefixes of the
// shipped files (01-, 02-) are the only dependency mechanism.
type Step struct {
	// Name identifies the step in filters, logs, and the summary.
	// Defaults to the source filename without extension.
	Name string `yaml:"name,omitempty" json:"name"`
	// Description is free text shown by the steps listing.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Timeout overrides the run-wide per-step timeout when positive.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// Resources are provisioned in order; each is create-or-adopt.
	Resources []Resource `yaml:"resources" json:"resources"`
	// Source is the file the step was loaded from.
	Source string `yaml:"-" json:"source,omitempty"`
}

// Resource describes one create-or-adopt unit inside a step.
type Resource struct {
	// ID names the resource in logs and results. Defaults to create.path.
	ID string `yaml:"id,omitempty" json:"id"`
	// Kind is a free-form label (organization-unit, user, role, application).
	Kind string `yaml:"kind,omitempty" json:"kind,omitempty"`
	// Create is the POST that establishes the resource.
	Create CreateSpec `yaml:"create" json:"create"`
	// Adopt is the lookup used when the resource already exists.
	Adopt AdoptSpec `yaml:"adopt,omitempty" json:"adopt,omitempty"`
	// ConflictCodes lists error-body codes that mark a 400 response as
	// "already exists" for endpoints that do not answer 409.
	ConflictCodes []string `yaml:"conflictCodes,omitempty" json:"conflictCodes,omitempty"`
	// Store, when set, names the run-context variable that receives the
	// resource identifier for later steps.
	Store string `yaml:"store,omitempty" json:"store,omitempty"`
}

// CreateSpec is the creating request of a resource.
type CreateSpec struct {
	// Method defaults to POST.
	Method string `yaml:"method,omitempty" json:"method,omitempty"`
	// Path is relative to the API base URL. May contain {{ placeholders }}.
	Path string `yaml:"path" json:"path"`
	// Body is the JSON payload. May contain {{ placeholders }}.
	Body map[string]interface{} `yaml:"body,omitempty" json:"body,omitempty"`
}

// AdoptSpec is the lookup performed when creation reports a conflict.
// The GET response may be a single object or a list; a list is searched for
// the element whose MatchField equals MatchValue.
type AdoptSpec struct {
	// Path is the lookup endpoint, relative to the base URL.
	Path string `yaml:"path" json:"path"`
	// ListKey unwraps a list nested in a response object, e.g.
	// {"organizationUnits": [...]}. Empty means the body itself is the list
	// or the object.
	ListKey string `yaml:"listKey,omitempty" json:"listKey,omitempty"`
	// MatchField / MatchValue select the element by natural key
	// (handle, username). MatchValue may contain {{ placeholders }}.
	MatchField string `yaml:"matchField,omitempty" json:"matchField,omitempty"`
	MatchValue string `yaml:"matchValue,omitempty" json:"matchValue,omitempty"`
	// IDField is the identifier field extracted from the match and from
	// create responses. Defaults to "id".
	IDField string `yaml:"idField,omitempty" json:"idField,omitempty"`
}

// RunOptions is the policy surface of one bootstrap run.
type RunOptions struct {
	// FailFast aborts remaining steps on the first failure.
	FailFast bool `json:"failFast"`
	// Skip excludes steps whose name contains the pattern.
	Skip string `json:"skip,omitempty"`
	// Only restricts execution to steps whose name contains the pattern.
	Only string `json:"only,omitempty"`
	// StepTimeout bounds each step unless the step declares its own.
	StepTimeout time.Duration `json:"stepTimeout,omitempty"`
}

// ResourceResult records the outcome of one resource within a step.
type ResourceResult struct {
	ID       string          `json:"id"`
	Kind     string          `json:"kind,omitempty"`
	Outcome  ResourceOutcome `json:"outcome"`
	StoredID string          `json:"storedId,omitempty"`
}

// StepResult records the outcome of one step.
type StepResult struct {
	Name      string           `json:"name"`
	Status    StepStatus       `json:"status"`
	Error     string           `json:"error,omitempty"`
	StartTime time.Time        `json:"startTime"`
	EndTime   time.Time        `json:"endTime"`
	Duration  time.Duration    `json:"duration"`
	Resources []ResourceResult `json:"resources,omitempty"`
}

// RunSummary aggregates a whole bootstrap run. Counters are bumped
// incrementally as steps finish and read once at the end for reporting.
type RunSummary struct {
	RunID      string        `json:"runId"`
	Discovered int           `json:"discovered"`
	Executed   int           `json:"executed"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Created    int           `json:"created"`
	Adopted    int           `json:"adopted"`
	StartTime  time.Time     `json:"startTime"`
	EndTime    time.Time     `json:"endTime"`
	Duration   time.Duration `json:"duration"`
	Options    RunOptions    `json:"options"`
	Steps      []StepResult  `json:"steps"`
}

// RunError is returned by Runner.Run when at least one step failed, so the
// command layer can map it to a nonzero exit code while still having the
// full summary.
type RunError struct {
	Summary *RunSummary
}

func (e *RunError) Error() string {
	return fmt.Sprintf("bootstrap run failed: %d of %d executed steps failed", e.Summary.Failed, e.Summary.Executed)
}

// StepLoader discovers and filters provisioning steps.
type StepLoader interface {
	// LoadSteps loads every step file under path, sorted by filename.
	LoadSteps(path string) ([]Step, error)
	// FilterSteps applies the skip/only patterns.
	FilterSteps(steps []Step, opts RunOptions) []Step
}

// Reporter receives run progress for user-facing output.
type Reporter interface {
	ReportStart(opts RunOptions, discovered int)
	ReportStepStart(step Step)
	ReportStepResult(result StepResult)
	ReportSummary(summary RunSummary)
}
