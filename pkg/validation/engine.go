// Package validation evaluates definition-time rules against collected form
// values. Rules are declared on fields (see pkg/nomination); the engine walks
// them in declaration order, computes every violation, and surfaces the first
// message. Callers gate error display on touched state themselves.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"sync"

	"github.com/rareaward/formflow/pkg/nomination"
)

// Func is a custom validator. It returns nil when the value passes and an
// error carrying the user-facing message otherwise.
type Func func(field nomination.Field, rule nomination.Rule, value any) error

// FieldResult captures the outcome of validating a single field. Messages are
// ordered by rule declaration; only the first is meant to be shown.
type FieldResult struct {
	Name     string   `json:"name"`
	Valid    bool     `json:"valid"`
	Messages []string `json:"messages,omitempty"`
}

// Message returns the surfaced message: the first violation, or "".
func (r FieldResult) Message() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0]
}

// Result aggregates field outcomes for a step or a whole form.
type Result struct {
	Valid         bool
	Fields        map[string]FieldResult
	RequiredTotal int
	RequiredValid int
}

// Completion reports the percentage of valid required fields, rounded to an
// integer. It is 100 when there are no required fields.
func (r Result) Completion() int {
	if r.RequiredTotal == 0 {
		return 100
	}
	return int(math.Round(100 * float64(r.RequiredValid) / float64(r.RequiredTotal)))
}

// Engine evaluates rules and hosts custom validators registered by kind.
type Engine struct {
	mu       sync.RWMutex
	custom   map[string]Func
	patterns map[string]*regexp.Regexp
}

// New constructs an Engine with the built-in rule kinds available.
func New() *Engine {
	return &Engine{
		custom:   make(map[string]Func),
		patterns: make(map[string]*regexp.Regexp),
	}
}

// Register installs a custom validator for a rule kind. Registering an
// already-known kind overrides the built-in behaviour.
func (e *Engine) Register(kind string, fn Func) error {
	if kind == "" {
		return fmt.Errorf("validation: rule kind is required")
	}
	if fn == nil {
		return fmt.Errorf("validation: validator for %q is nil", kind)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.custom[kind] = fn
	return nil
}

// Reset removes every registered custom validator and clears the compiled
// pattern cache, returning the engine to its built-in behaviour.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.custom = make(map[string]Func)
	e.patterns = make(map[string]*regexp.Regexp)
}

// ValidateField evaluates every rule on the field against the value. All
// violations are computed; the first message is the one to surface.
func (e *Engine) ValidateField(field nomination.Field, value any) FieldResult {
	result := FieldResult{Name: field.Name, Valid: true}

	for _, rule := range field.Rules {
		if err := e.evaluate(field, rule, value); err != nil {
			result.Valid = false
			result.Messages = append(result.Messages, err.Error())
		}
	}
	return result
}

// ValidateStep validates the fields of a single 1-based step.
func (e *Engine) ValidateStep(def nomination.Definition, step int, values map[string]any) Result {
	s, ok := def.StepAt(step)
	if !ok {
		return Result{Valid: false, Fields: map[string]FieldResult{}}
	}
	return e.validateFields(s.Fields, values)
}

// ValidateAll validates every field across all steps.
func (e *Engine) ValidateAll(def nomination.Definition, values map[string]any) Result {
	return e.validateFields(def.Fields(), values)
}

func (e *Engine) validateFields(fields []nomination.Field, values map[string]any) Result {
	result := Result{Valid: true, Fields: make(map[string]FieldResult, len(fields))}
	for _, field := range fields {
		fr := e.ValidateField(field, values[field.Name])
		result.Fields[field.Name] = fr
		if !fr.Valid {
			result.Valid = false
		}
		if field.Required {
			result.RequiredTotal++
			if fr.Valid {
				result.RequiredValid++
			}
		}
	}
	return result
}

func (e *Engine) evaluate(field nomination.Field, rule nomination.Rule, value any) error {
	e.mu.RLock()
	fn, ok := e.custom[rule.Kind]
	e.mu.RUnlock()
	if ok {
		return wrapMessage(rule, fn(field, rule, value))
	}

	builtin, ok := builtins[rule.Kind]
	if !ok {
		// Unknown kinds are rejected at definition load time; treat any that
		// slip through as passing rather than blocking the user.
		return nil
	}
	return wrapMessage(rule, builtin(e, field, rule, value))
}

// wrapMessage substitutes a rule-level message override for the default one.
func wrapMessage(rule nomination.Rule, err error) error {
	if err == nil {
		return nil
	}
	if rule.Message != "" {
		return fmt.Errorf("%s", rule.Message)
	}
	return err
}

// compilePattern caches compiled expressions across validation passes.
func (e *Engine) compilePattern(expr string) (*regexp.Regexp, error) {
	e.mu.RLock()
	re, ok := e.patterns[expr]
	e.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.patterns[expr] = re
	e.mu.Unlock()
	return re, nil
}
