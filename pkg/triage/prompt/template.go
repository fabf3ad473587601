// Package prompt renders LLM prompts from ${var} templates.
//
// Only the brace form is recognized so prompts may contain a bare "$".
// Values are formatted with %v; string slices are joined one per line.
package prompt

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// varPattern matches ${varname} - varname can contain alphanumeric and underscore.
var varPattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// MissingAction defines behavior when a variable has no value.
type MissingAction int

const (
	// MissingError fails the render with an *UndefinedVariableError.
	MissingError MissingAction = iota

	// MissingKeep leaves the placeholder untouched.
	MissingKeep

	// MissingEmpty replaces the placeholder with an empty string.
	MissingEmpty
)

// Template is a parsed prompt. It is safe for concurrent use.
type Template struct {
	name    string
	text    string
	vars    []string
	missing MissingAction
}

// Option configures a Template.
type Option func(*Template)

// WithMissingAction sets how missing variables are handled.
// Default: MissingError
func WithMissingAction(action MissingAction) Option {
	return func(t *Template) { t.missing = action }
}

// New parses text into a Template.
func New(name, text string, opts ...Option) *Template {
	t := &Template{name: name, text: text, missing: MissingError}
	for _, m := range varPattern.FindAllStringSubmatch(text, -1) {
		if !slices.Contains(t.vars, m[1]) {
			t.vars = append(t.vars, m[1])
		}
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the template name.
func (t *Template) Name() string {
	return t.name
}

// Variables returns the variable names in order of first appearance.
func (t *Template) Variables() []string {
	return slices.Clone(t.vars)
}

// Render substitutes vars into the template.
func (t *Template) Render(vars map[string]any) (string, error) {
	var missing []string
	out := varPattern.ReplaceAllStringFunc(t.text, func(match string) string {
		name := match[2 : len(match)-1]
		if val, ok := vars[name]; ok {
			return format(val)
		}
		switch t.missing {
		case MissingEmpty:
			return ""
		case MissingError:
			if !slices.Contains(missing, name) {
				missing = append(missing, name)
			}
		}
		return match
	})

	if len(missing) > 0 {
		return "", &UndefinedVariableError{Template: t.name, Names: missing}
	}
	return out, nil
}

// MustRender renders the template and panics on error.
func (t *Template) MustRender(vars map[string]any) string {
	out, err := t.Render(vars)
	if err != nil {
		panic(fmt.Sprintf("prompt: %v", err))
	}
	return out
}

func format(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, "\n")
	default:
		return fmt.Sprintf("%v", val)
	}
}

// UndefinedVariableError is returned when MissingError is set and
// one or more variables are not found.
type UndefinedVariableError struct {
	Template string
	Names    []string
}

// Error implements the error interface.
func (e *UndefinedVariableError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("prompt %s: undefined variable: %s", e.Template, e.Names[0])
	}
	return fmt.Sprintf("prompt %s: undefined variables: %s", e.Template, strings.Join(e.Names, ", "))
}
