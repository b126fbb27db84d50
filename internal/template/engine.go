package template

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Engine resolves run-scoped identifier placeholders in provisioning
// resource definitions. Placeholders use the form {{ name }} (an optional
// leading dot and surrounding whitespace are accepted) and are looked up in
// a variables map; a placeholder with no stored value is an error so a step
// never silently provisions with an empty identifier.
type Engine struct {
	placeholderPattern *regexp.Regexp
}

// New creates a new template engine.
func New() *Engine {
	return &Engine{
		placeholderPattern: regexp.MustCompile(`\{\{\s*\.?([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`),
	}
}

// Resolve replaces all placeholders in a value with values from vars.
// Strings are substituted in place; maps and slices are walked recursively.
// Other types pass through unchanged.
func (e *Engine) Resolve(value interface{}, vars map[string]interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return e.resolveString(v, vars)
	case map[string]interface{}:
		return e.resolveMap(v, vars)
	case []interface{}:
		return e.resolveSlice(v, vars)
	default:
		return value, nil
	}
}

// ResolveString resolves placeholders in a single string, such as a request
// path or a lookup match value.
func (e *Engine) ResolveString(s string, vars map[string]interface{}) (string, error) {
	return e.resolveString(s, vars)
}

func (e *Engine) resolveString(s string, vars map[string]interface{}) (string, error) {
	var missing []string

	result := e.placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := e.placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := vars[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		return stringify(value)
	})

	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("unresolved placeholders: %s", strings.Join(missing, ", "))
	}

	return result, nil
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case int, int32, int64:
		return fmt.Sprintf("%d", v)
	case float32, float64:
		return fmt.Sprintf("%g", v)
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (e *Engine) resolveMap(m map[string]interface{}, vars map[string]interface{}) (map[string]interface{}, error) {
	result := make(map[string]interface{}, len(m))

	for key, value := range m {
		resolved, err := e.Resolve(value, vars)
		if err != nil {
			return nil, fmt.Errorf("error in key %q: %w", key, err)
		}
		result[key] = resolved
	}

	return result, nil
}

func (e *Engine) resolveSlice(s []interface{}, vars map[string]interface{}) ([]interface{}, error) {
	result := make([]interface{}, len(s))

	for i, value := range s {
		resolved, err := e.Resolve(value, vars)
		if err != nil {
			return nil, fmt.Errorf("error at index %d: %w", i, err)
		}
		result[i] = resolved
	}

	return result, nil
}

// ExtractPlaceholders returns the distinct placeholder names referenced
// anywhere in a value. Used at load time to report identifiers a step
// consumes before any step produces them.
func (e *Engine) ExtractPlaceholders(value interface{}) []string {
	names := make(map[string]bool)
	e.extractRecursive(value, names)

	result := make([]string, 0, len(names))
	for name := range names {
		result = append(result, name)
	}
	sort.Strings(result)

	return result
}

func (e *Engine) extractRecursive(value interface{}, names map[string]bool) {
	switch v := value.(type) {
	case string:
		for _, match := range e.placeholderPattern.FindAllStringSubmatch(v, -1) {
			if len(match) >= 2 {
				names[match[1]] = true
			}
		}
	case map[string]interface{}:
		for _, val := range v {
			e.extractRecursive(val, names)
		}
	case []interface{}:
		for _, val := range v {
			e.extractRecursive(val, names)
		}
	}
}
