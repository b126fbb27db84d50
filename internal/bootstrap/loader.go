package bootstrap

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	texttemplate "text/template"

	"thunderctl/internal/template"
	"thunderctl/pkg/logging"

	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"
)

// stepLoader implements the StepLoader interface.
type stepLoader struct{}

// NewStepLoader creates a loader for provisioning step files.
func NewStepLoader() StepLoader {
	return &stepLoader{}
}

// LoadSteps loads provisioning steps from the given path. A directory is
// walked for *.yaml/*.yml files; a single file is loaded directly. Steps are
// returned sorted by filename ascending, which is the execution order: the
// numeric prefixes of the shipped files (01-, 02-) are the only dependency
// mechanism.
func (l *stepLoader) LoadSteps(path string) ([]Step, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("steps path does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat steps path: %w", err)
	}

	var steps []Step
	if info.IsDir() {
		steps, err = l.loadStepsFromDirectory(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load steps from directory: %w", err)
		}
	} else {
		step, err := l.loadStepFromFile(path)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}

	// Execution order is defined by the filename, not by whatever order the
	// filesystem happened to enumerate.
	sort.Slice(steps, func(i, j int) bool {
		return filepath.Base(steps[i].Source) < filepath.Base(steps[j].Source)
	})

	logging.Debug("Loader", "Loaded %d steps from %s", len(steps), path)
	for _, step := range steps {
		if consumed := stepPlaceholders(step); len(consumed) > 0 {
			logging.Debug("Loader", "  step %s (%d resources, needs %s) from %s",
				step.Name, len(step.Resources), strings.Join(consumed, ", "), step.Source)
		} else {
			logging.Debug("Loader", "  step %s (%d resources) from %s", step.Name, len(step.Resources), step.Source)
		}
	}

	return steps, nil
}

// stepPlaceholders lists the run identifiers a step consumes, so debug
// output shows which earlier steps it depends on.
func stepPlaceholders(step Step) []string {
	engine := template.New()
	seen := make(map[string]bool)
	var names []string

	collect := func(value interface{}) {
		for _, name := range engine.ExtractPlaceholders(value) {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	for _, res := range step.Resources {
		collect(res.Create.Path)
		collect(res.Create.Body)
		collect(res.Adopt.Path)
		collect(res.Adopt.MatchValue)
	}

	sort.Strings(names)
	return names
}

func (l *stepLoader) loadStepsFromDirectory(dirPath string) ([]Step, error) {
	var steps []Step

	err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		if !isYAMLFile(path) {
			return nil
		}

		step, err := l.loadStepFromFile(path)
		if err != nil {
			return err
		}

		steps = append(steps, step)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", dirPath, err)
	}

	return steps, nil
}

func (l *stepLoader) loadStepFromFile(filePath string) (Step, error) {
	var step Step

	content, err := os.ReadFile(filePath)
	if err != nil {
		return step, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	rendered, err := renderStepFile(filepath.Base(filePath), content)
	if err != nil {
		return step, fmt.Errorf("failed to render %s: %w", filePath, err)
	}

	if err := yaml.Unmarshal(rendered, &step); err != nil {
		return step, fmt.Errorf("failed to parse YAML in %s: %w", filePath, err)
	}

	step.Source = filePath
	if step.Name == "" {
		step.Name = stepNameFromFile(filePath)
	}
	for i := range step.Resources {
		if step.Resources[i].ID == "" {
			step.Resources[i].ID = step.Resources[i].Create.Path
		}
	}

	if err := validateStep(step); err != nil {
		return step, fmt.Errorf("invalid step in %s: %w", filePath, err)
	}

	return step, nil
}

// renderStepFile expands load-time template functions in a step file before
// YAML parsing. Load-time templates use [[ ]] delimiters and the sprig
// function set, so values like credentials come from the invoking
// environment ([[ env "THUNDER_ADMIN_PASSWORD" | default "admin" ]]) without
// colliding with the {{ placeholder }} syntax resolved at execution time.
func renderStepFile(name string, content []byte) ([]byte, error) {
	tmpl, err := texttemplate.New(name).Delims("[[", "]]").Funcs(sprig.TxtFuncMap()).Parse(string(content))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, nil); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// validateStep checks that a step can actually run.
func validateStep(step Step) error {
	if len(step.Resources) == 0 {
		return fmt.Errorf("step must have at least one resource")
	}

	for i, res := range step.Resources {
		if err := validateResource(res); err != nil {
			return fmt.Errorf("resource %d (%s): %w", i+1, res.ID, err)
		}
	}

	if step.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}

	return nil
}

func validateResource(res Resource) error {
	if res.Create.Path == "" {
		return fmt.Errorf("create path is required")
	}

	// Without a lookup the identifier is lost on a re-run, which would break
	// every later step that references it.
	if res.Store != "" && res.Adopt.Path == "" {
		return fmt.Errorf("adopt path is required when store is set")
	}

	if (res.Adopt.MatchField == "") != (res.Adopt.MatchValue == "") {
		return fmt.Errorf("matchField and matchValue must be set together")
	}

	return nil
}

// FilterSteps applies the skip/only patterns to the loaded steps. An only
// pattern restricts the run to steps whose name contains it; a skip pattern
// excludes steps whose name contains it.
func (l *stepLoader) FilterSteps(steps []Step, opts RunOptions) []Step {
	var filtered []Step

	for _, step := range steps {
		if opts.Only != "" && !strings.Contains(step.Name, opts.Only) {
			continue
		}
		if opts.Skip != "" && strings.Contains(step.Name, opts.Skip) {
			continue
		}
		filtered = append(filtered, step)
	}

	logging.Debug("Loader", "Filtered %d of %d steps (skip=%q only=%q)", len(filtered), len(steps), opts.Skip, opts.Only)

	return filtered
}

// isYAMLFile checks if a file has a YAML extension.
func isYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// stepNameFromFile derives the default step name from its filename,
// e.g. steps/01-default-resources.yaml -> 01-default-resources.
func stepNameFromFile(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// GetDefaultStepsDir returns the default directory of provisioning steps.
func GetDefaultStepsDir() string {
	return "steps"
}
