package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rareaward/formflow/pkg/nomination"
)

type builtinFunc func(e *Engine, field nomination.Field, rule nomination.Rule, value any) error

var builtins = map[string]builtinFunc{
	nomination.RuleRequired:     ruleRequired,
	nomination.RuleEmail:        ruleEmail,
	nomination.RulePhone:        rulePhone,
	nomination.RuleMinLength:    ruleMinLength,
	nomination.RuleMaxLength:    ruleMaxLength,
	nomination.RuleMinWords:     ruleMinWords,
	nomination.RulePattern:      rulePattern,
	nomination.RuleOneOf:        ruleOneOf,
	nomination.RuleNonEmpty:     ruleNonEmpty,
	nomination.RuleRelationship: ruleRelationship,
	nomination.RuleNarrative:    ruleNarrative,
}

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9()+\s.-]{7,20}$`)
)

func ruleRequired(_ *Engine, field nomination.Field, _ nomination.Rule, value any) error {
	if isEmpty(value) {
		return fmt.Errorf("%s is required", displayLabel(field))
	}
	return nil
}

func ruleEmail(_ *Engine, _ nomination.Field, _ nomination.Rule, value any) error {
	text := stringValue(value)
	if text == "" {
		return nil
	}
	if !emailPattern.MatchString(text) {
		return fmt.Errorf("enter a valid email address")
	}
	return nil
}

func rulePhone(_ *Engine, _ nomination.Field, _ nomination.Rule, value any) error {
	text := strings.TrimSpace(stringValue(value))
	if text == "" {
		return nil
	}
	if !phonePattern.MatchString(text) {
		return fmt.Errorf("enter a valid phone number")
	}
	return nil
}

func ruleMinLength(_ *Engine, _ nomination.Field, rule nomination.Rule, value any) error {
	text := stringValue(value)
	if text == "" {
		return nil
	}
	min, ok := paramInt(rule, "value")
	if !ok {
		return nil
	}
	if len([]rune(text)) < min {
		return fmt.Errorf("must be at least %d characters", min)
	}
	return nil
}

func ruleMaxLength(_ *Engine, _ nomination.Field, rule nomination.Rule, value any) error {
	text := stringValue(value)
	max, ok := paramInt(rule, "value")
	if !ok {
		return nil
	}
	if len([]rune(text)) > max {
		return fmt.Errorf("must be no more than %d characters", max)
	}
	return nil
}

func ruleMinWords(_ *Engine, _ nomination.Field, rule nomination.Rule, value any) error {
	text := strings.TrimSpace(stringValue(value))
	if text == "" {
		return nil
	}
	min, ok := paramInt(rule, "value")
	if !ok {
		return nil
	}
	if wordCount(text) < min {
		return fmt.Errorf("must be at least %d words", min)
	}
	return nil
}

func rulePattern(e *Engine, _ nomination.Field, rule nomination.Rule, value any) error {
	text := stringValue(value)
	if text == "" {
		return nil
	}
	expr := rule.Params["pattern"]
	if expr == "" {
		return nil
	}
	re, err := e.compilePattern(expr)
	if err != nil {
		// A broken pattern is a definition defect; do not punish the user.
		return nil
	}
	if !re.MatchString(text) {
		return fmt.Errorf("does not match the expected format")
	}
	return nil
}

func ruleOneOf(_ *Engine, field nomination.Field, _ nomination.Rule, value any) error {
	text := stringValue(value)
	if text == "" {
		return nil
	}
	for _, option := range field.Options {
		if option.Value == text {
			return nil
		}
	}
	return fmt.Errorf("choose one of the listed options")
}

func ruleNonEmpty(_ *Engine, _ nomination.Field, _ nomination.Rule, value any) error {
	if len(listValue(value)) == 0 {
		return fmt.Errorf("select at least one option")
	}
	return nil
}

// ruleRelationship enforces the free-text relationship shape: a minimum word
// count and a minimum character count, so one-word answers like "coworker"
// are rejected while "my direct manager" passes.
func ruleRelationship(_ *Engine, _ nomination.Field, rule nomination.Rule, value any) error {
	text := strings.TrimSpace(stringValue(value))
	if text == "" {
		return nil
	}
	minWords := 2
	minChars := 10
	if v, ok := paramInt(rule, "words"); ok {
		minWords = v
	}
	if v, ok := paramInt(rule, "chars"); ok {
		minChars = v
	}
	if wordCount(text) < minWords || len([]rune(text)) < minChars {
		return fmt.Errorf("describe the relationship in at least %d words (%d characters or more)", minWords, minChars)
	}
	return nil
}

func ruleNarrative(_ *Engine, _ nomination.Field, rule nomination.Rule, value any) error {
	text := strings.TrimSpace(stringValue(value))
	if text == "" {
		return nil
	}
	min := 100
	if v, ok := paramInt(rule, "value"); ok {
		min = v
	}
	if len([]rune(text)) < min {
		return fmt.Errorf("tell us a little more: at least %d characters", min)
	}
	return nil
}

func displayLabel(field nomination.Field) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}

func paramInt(rule nomination.Rule, key string) (int, bool) {
	raw, ok := rule.Params[key]
	if !ok {
		return 0, false
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return value, true
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case bool:
		return !v
	default:
		return false
	}
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func listValue(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, stringValue(item))
		}
		return out
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return []string{v}
	default:
		return []string{stringValue(value)}
	}
}
