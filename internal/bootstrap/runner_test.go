package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thunderctl/internal/api"
)

// fakeThunder is a stateful in-memory stand-in for a Thunder server. It
// answers duplicate organization units with 409 and duplicate users with the
// 400-plus-error-body shape some endpoints use, so both adoption paths are
// exercised.
type fakeThunder struct {
	mu         sync.Mutex
	nextID     int
	orgUnits   map[string]string // handle -> id
	users      map[string]string // username -> id
	lastOrgRef string            // organizationUnit seen on the last user create
}

func newFakeThunder() *fakeThunder {
	return &fakeThunder{
		orgUnits: make(map[string]string),
		users:    make(map[string]string),
	}
}

func (f *fakeThunder) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/organization-units", f.handleOrgUnits)
	mux.HandleFunc("/users", f.handleUsers)
	mux.HandleFunc("/fail", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"code": "SRV-5000", "message": "Something went wrong"}`)
	})
	return mux
}

func (f *fakeThunder) handleOrgUnits(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPost:
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		handle, _ := body["handle"].(string)

		if _, exists := f.orgUnits[handle]; exists {
			w.WriteHeader(http.StatusConflict)
			fmt.Fprint(w, `{"code": "OU-60002", "message": "Organization unit already exists"}`)
			return
		}

		f.nextID++
		id := fmt.Sprintf("ou-%d", f.nextID)
		f.orgUnits[handle] = id
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"id": %q, "handle": %q}`, id, handle)

	case http.MethodGet:
		var items []map[string]string
		for handle, id := range f.orgUnits {
			items = append(items, map[string]string{"handle": handle, "id": id})
		}
		payload, _ := json.Marshal(map[string]interface{}{"organizationUnits": items})
		w.Write(payload)
	}
}

func (f *fakeThunder) handleUsers(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPost:
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		username, _ := body["username"].(string)
		f.lastOrgRef, _ = body["organizationUnit"].(string)

		if _, exists := f.users[username]; exists {
			// Duplicate users come back as 400, not 409.
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"code": "USR-60001", "message": "User already exists"}`)
			return
		}

		f.nextID++
		id := fmt.Sprintf("u-%d", f.nextID)
		f.users[username] = id
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"id": %q, "username": %q}`, id, username)

	case http.MethodGet:
		var items []map[string]string
		for username, id := range f.users {
			items = append(items, map[string]string{"username": username, "id": id})
		}
		payload, _ := json.Marshal(map[string]interface{}{"users": items})
		w.Write(payload)
	}
}

// recordingReporter captures reporter events for assertions.
type recordingReporter struct {
	discovered int
	starts     int
	stepStarts []string
	results    []StepResult
	summaries  []RunSummary
}

func (r *recordingReporter) ReportStart(opts RunOptions, discovered int) {
	r.starts++
	r.discovered = discovered
}

func (r *recordingReporter) ReportStepStart(step Step) {
	r.stepStarts = append(r.stepStarts, step.Name)
}

func (r *recordingReporter) ReportStepResult(result StepResult) {
	r.results = append(r.results, result)
}

func (r *recordingReporter) ReportSummary(summary RunSummary) {
	r.summaries = append(r.summaries, summary)
}

func orgUnitStep(name string) Step {
	return Step{
		Name:   name,
		Source: name + ".yaml",
		Resources: []Resource{{
			ID:   "root-org-unit",
			Kind: "organization-unit",
			Create: CreateSpec{
				Path: "/organization-units",
				Body: map[string]interface{}{"handle": "root"},
			},
			Adopt: AdoptSpec{
				Path:       "/organization-units",
				ListKey:    "organizationUnits",
				MatchField: "handle",
				MatchValue: "root",
			},
			Store: "orgUnitID",
		}},
	}
}

func adminUserStep(name string) Step {
	return Step{
		Name:   name,
		Source: name + ".yaml",
		Resources: []Resource{{
			ID:   "admin-user",
			Kind: "user",
			Create: CreateSpec{
				Path: "/users",
				Body: map[string]interface{}{
					"username":         "admin",
					"organizationUnit": "{{ orgUnitID }}",
				},
			},
			Adopt: AdoptSpec{
				Path:       "/users",
				ListKey:    "users",
				MatchField: "username",
				MatchValue: "admin",
			},
			ConflictCodes: []string{"USR-60001"},
			Store:         "adminUserID",
		}},
	}
}

func failingStep(name string) Step {
	return Step{
		Name:   name,
		Source: name + ".yaml",
		Resources: []Resource{{
			ID:     "always-fails",
			Kind:   "marker",
			Create: CreateSpec{Path: "/fail"},
		}},
	}
}

func newTestRunner(t *testing.T, handler http.Handler) (*Runner, *recordingReporter) {
	t.Helper()
	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)

	reporter := &recordingReporter{}
	runner := NewRunner(api.New(srv.URL, 5*time.Second), NewStepLoader(), reporter)
	return runner, reporter
}

func TestRunAllStepsSucceed(t *testing.T) {
	fake := newFakeThunder()
	runner, reporter := newTestRunner(t, fake.handler())

	steps := []Step{orgUnitStep("01-default-resources"), adminUserStep("02-sample-resources")}

	summary, err := runner.Run(context.Background(), RunOptions{FailFast: true}, steps)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Discovered)
	assert.Equal(t, 2, summary.Executed)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 0, summary.Adopted)
	assert.NotEmpty(t, summary.RunID)

	// The user create must have seen the real identifier stored by the
	// organization unit step, not the raw placeholder.
	assert.Equal(t, "ou-1", fake.lastOrgRef)

	assert.Equal(t, 1, reporter.starts)
	assert.Equal(t, 2, reporter.discovered)
	assert.Equal(t, []string{"01-default-resources", "02-sample-resources"}, reporter.stepStarts)
	require.Len(t, reporter.summaries, 1)
}

func TestRunIsIdempotent(t *testing.T) {
	fake := newFakeThunder()
	srv := httptest.NewTLSServer(fake.handler())
	t.Cleanup(srv.Close)

	run := func() *RunSummary {
		runner := NewRunner(api.New(srv.URL, 5*time.Second), NewStepLoader(), &recordingReporter{})
		steps := []Step{orgUnitStep("01-default-resources"), adminUserStep("02-sample-resources")}
		summary, err := runner.Run(context.Background(), RunOptions{FailFast: true}, steps)
		require.NoError(t, err)
		return summary
	}

	first := run()
	assert.Equal(t, 2, first.Created)
	assert.Equal(t, 0, first.Adopted)

	second := run()
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, first.Created, second.Adopted)
	assert.Equal(t, 2, second.Succeeded)
	assert.Equal(t, 0, second.Failed)
}

func TestRunFailFastStopsAfterFailure(t *testing.T) {
	fake := newFakeThunder()
	runner, reporter := newTestRunner(t, fake.handler())

	steps := []Step{
		orgUnitStep("01-default-resources"),
		failingStep("02-broken"),
		adminUserStep("03-sample-resources"),
	}

	summary, err := runner.Run(context.Background(), RunOptions{FailFast: true}, steps)
	require.Error(t, err)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Same(t, summary, runErr.Summary)

	assert.Equal(t, 3, summary.Discovered)
	assert.Equal(t, 2, summary.Executed)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Skipped)

	// The third step never started.
	assert.Equal(t, []string{"01-default-resources", "02-broken"}, reporter.stepStarts)
	assert.Len(t, summary.Steps, 2)
}

func TestRunContinuesWhenFailFastDisabled(t *testing.T) {
	fake := newFakeThunder()
	runner, _ := newTestRunner(t, fake.handler())

	steps := []Step{
		orgUnitStep("01-default-resources"),
		failingStep("02-broken"),
		adminUserStep("03-sample-resources"),
	}

	summary, err := runner.Run(context.Background(), RunOptions{FailFast: false}, steps)
	require.Error(t, err)

	assert.Equal(t, 3, summary.Executed)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
}

func TestRunSkipFilter(t *testing.T) {
	fake := newFakeThunder()
	runner, reporter := newTestRunner(t, fake.handler())

	steps := []Step{
		orgUnitStep("01-default-resources"),
		adminUserStep("02-sample-resources"),
	}

	summary, err := runner.Run(context.Background(), RunOptions{FailFast: true, Skip: "sample"}, steps)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Discovered)
	assert.Equal(t, 1, summary.Executed)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Skipped)

	// Skipped steps still show up in the results, marked as skipped.
	require.Len(t, reporter.results, 2)
	assert.Equal(t, StatusSucceeded, reporter.results[0].Status)
	assert.Equal(t, StatusSkipped, reporter.results[1].Status)

	// No user was created on the server.
	assert.Empty(t, fake.users)
}

func TestRunOnlyFilter(t *testing.T) {
	fake := newFakeThunder()
	fake.orgUnits["root"] = "ou-manual" // pre-existing unit, the run must adopt it
	runner, _ := newTestRunner(t, fake.handler())

	steps := []Step{
		orgUnitStep("01-default-resources"),
		adminUserStep("02-sample-resources"),
	}

	summary, err := runner.Run(context.Background(), RunOptions{FailFast: true, Only: "default"}, steps)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Executed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Adopted, "the seeded organization unit is adopted, not recreated")
	assert.Empty(t, fake.users)
}

func TestRunStepTimeout(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": "ou-1"}`)
	})
	runner, _ := newTestRunner(t, slow)

	step := orgUnitStep("01-default-resources")
	step.Timeout = 50 * time.Millisecond

	summary, err := runner.Run(context.Background(), RunOptions{FailFast: true}, []Step{step})
	require.Error(t, err)

	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Steps, 1)
	assert.Contains(t, summary.Steps[0].Error, "unreachable")
}

func TestRunCanceledContextStopsBeforeExecuting(t *testing.T) {
	fake := newFakeThunder()
	runner, _ := newTestRunner(t, fake.handler())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := runner.Run(ctx, RunOptions{FailFast: true}, []Step{orgUnitStep("01-default-resources")})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Executed)
	assert.Empty(t, fake.orgUnits)
}

func TestRunErrorMessage(t *testing.T) {
	err := &RunError{Summary: &RunSummary{Executed: 3, Failed: 2}}
	assert.Contains(t, err.Error(), "2 of 3")
}
