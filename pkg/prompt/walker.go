package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rareaward/formflow/pkg/nomination"
	"github.com/rareaward/formflow/pkg/session"
	"github.com/rareaward/formflow/pkg/validation"
)

// ErrDeclined signals the user reached the end of the flow but chose not to
// submit.
var ErrDeclined = errors.New("prompt: submission declined")

// Option configures a Walker.
type Option func(*Walker)

// WithDriver swaps the terminal driver, mainly for tests.
func WithDriver(driver Driver) Option {
	return func(w *Walker) {
		if driver != nil {
			w.driver = driver
		}
	}
}

// WithValidator replaces the engine used for inline per-field validation.
func WithValidator(engine *validation.Engine) Option {
	return func(w *Walker) {
		if engine != nil {
			w.validator = engine
		}
	}
}

// Walker drives a form session through a terminal, one step at a time. Each
// field gets a typed prompt with inline validation, and the last step ends in
// a confirmation before the session submits.
type Walker struct {
	driver    Driver
	validator *validation.Engine
}

// NewWalker builds a Walker with the survey-backed driver by default.
func NewWalker(opts ...Option) *Walker {
	w := &Walker{
		driver:    NewSurveyDriver(),
		validator: validation.New(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run walks the session from its current step to submission. It returns
// ErrAborted when the user interrupts and ErrDeclined when they back out at
// the final confirmation; in both cases the session keeps its state so the
// caller can flush an autosave or save a draft.
func (w *Walker) Run(ctx context.Context, sess *session.Session) error {
	if sess == nil {
		return errors.New("prompt: session is required")
	}
	def := sess.Definition()

	for {
		current := sess.Step()
		step, ok := def.StepAt(current)
		if !ok {
			return fmt.Errorf("prompt: no step %d in form %q", current, def.ID)
		}

		if err := w.driver.Info(ctx, stepBanner(def, step, current)); err != nil {
			return err
		}

		for _, field := range step.Fields {
			if err := w.askField(ctx, sess, field); err != nil {
				return err
			}
		}

		if current == def.StepCount() {
			return w.confirmAndSubmit(ctx, sess)
		}
		if err := sess.Next(ctx); err != nil {
			// Inline validation should make this unreachable, but the
			// session is the authority on step gating.
			if errors.Is(err, session.ErrStepInvalid) {
				if infoErr := w.driver.Info(ctx, "Some answers on this step are still invalid."); infoErr != nil {
					return infoErr
				}
				continue
			}
			return err
		}
	}
}

func (w *Walker) askField(ctx context.Context, sess *session.Session, field nomination.Field) error {
	switch field.Type {
	case nomination.FieldTypeSelect, nomination.FieldTypeRadio:
		return w.askSelect(ctx, sess, field)
	case nomination.FieldTypeCheckboxGroup:
		return w.askMultiSelect(ctx, sess, field)
	case nomination.FieldTypeTextarea:
		return w.askTextArea(ctx, sess, field)
	default:
		return w.askInput(ctx, sess, field)
	}
}

func (w *Walker) askInput(ctx context.Context, sess *session.Session, field nomination.Field) error {
	value, err := w.driver.Input(ctx, InputConfig{
		Message: fieldMessage(field),
		Default: stringValue(sess.Value(field.Name)),
		Help:    field.Help,
		Validator: func(text string) error {
			if result := w.validator.ValidateField(field, text); !result.Valid {
				return errors.New(result.Message())
			}
			return nil
		},
	})
	if err != nil {
		return err
	}
	sess.SetValue(field.Name, value)
	sess.Touch(field.Name)
	return nil
}

func (w *Walker) askTextArea(ctx context.Context, sess *session.Session, field nomination.Field) error {
	for {
		value, err := w.driver.TextArea(ctx, TextAreaConfig{
			Message: fieldMessage(field),
			Default: stringValue(sess.Value(field.Name)),
			Help:    field.Help,
		})
		if err != nil {
			return err
		}
		// Multiline prompts have no inline validator hook, so re-ask on
		// failure with the message shown between attempts.
		if result := w.validator.ValidateField(field, value); !result.Valid {
			if infoErr := w.driver.Info(ctx, result.Message()); infoErr != nil {
				return infoErr
			}
			continue
		}
		sess.SetValue(field.Name, value)
		sess.Touch(field.Name)
		return nil
	}
}

func (w *Walker) askSelect(ctx context.Context, sess *session.Session, field nomination.Field) error {
	labels := optionLabels(field.Options)
	idx, err := w.driver.Select(ctx, SelectConfig{
		Message:      fieldMessage(field),
		Options:      labels,
		DefaultIndex: indexOf(labels, labelForValue(field.Options, stringValue(sess.Value(field.Name)))),
		Help:         field.Help,
	})
	if err != nil {
		return err
	}
	if idx >= 0 && idx < len(field.Options) {
		sess.SetValue(field.Name, field.Options[idx].Value)
	}
	sess.Touch(field.Name)
	return nil
}

func (w *Walker) askMultiSelect(ctx context.Context, sess *session.Session, field nomination.Field) error {
	labels := optionLabels(field.Options)
	for {
		indices, err := w.driver.MultiSelect(ctx, SelectConfig{
			Message:  fieldMessage(field),
			Options:  labels,
			Defaults: selectedIndices(field.Options, sess.Value(field.Name)),
			Help:     field.Help,
		})
		if err != nil {
			return err
		}
		values := make([]string, 0, len(indices))
		for _, idx := range indices {
			if idx >= 0 && idx < len(field.Options) {
				values = append(values, field.Options[idx].Value)
			}
		}
		if result := w.validator.ValidateField(field, values); !result.Valid {
			if infoErr := w.driver.Info(ctx, result.Message()); infoErr != nil {
				return infoErr
			}
			continue
		}
		sess.SetValue(field.Name, values)
		sess.Touch(field.Name)
		return nil
	}
}

func (w *Walker) confirmAndSubmit(ctx context.Context, sess *session.Session) error {
	ok, err := w.driver.Confirm(ctx, ConfirmConfig{
		Message: "Submit this nomination?",
		Default: true,
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrDeclined
	}
	if err := sess.Submit(ctx); err != nil {
		return err
	}
	if ref, found := sess.Reference(); found {
		return w.driver.Info(ctx, fmt.Sprintf("Submitted. Reference number: %s", ref))
	}
	return nil
}

func stepBanner(def nomination.Definition, step nomination.Step, current int) string {
	title := step.Title
	if title == "" {
		title = step.ID
	}
	banner := fmt.Sprintf("Step %d of %d: %s", current, def.StepCount(), title)
	if step.Description != "" {
		banner += "\n" + step.Description
	}
	return banner
}

func fieldMessage(field nomination.Field) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}

func optionLabels(options []nomination.Option) []string {
	out := make([]string, len(options))
	for i, option := range options {
		if option.Label != "" {
			out[i] = option.Label
		} else {
			out[i] = option.Value
		}
	}
	return out
}

func labelForValue(options []nomination.Option, value string) string {
	for _, option := range options {
		if option.Value == value {
			if option.Label != "" {
				return option.Label
			}
			return option.Value
		}
	}
	return ""
}

func selectedIndices(options []nomination.Option, value any) []int {
	selected := make(map[string]struct{})
	switch v := value.(type) {
	case []string:
		for _, s := range v {
			selected[s] = struct{}{}
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				selected[s] = struct{}{}
			}
		}
	case string:
		if v != "" {
			selected[v] = struct{}{}
		}
	}
	var out []int
	for i, option := range options {
		if _, ok := selected[option.Value]; ok {
			out = append(out, i)
		}
	}
	return out
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}
