// Package session drives a nomination form through its steps: it owns the
// value aggregate, gates transitions on validation, debounces autosave
// writes, manages named drafts, and orchestrates submission. Collaborators
// are injected explicitly so nothing depends on ambient globals or
// registration order.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/rareaward/formflow/pkg/nomination"
	"github.com/rareaward/formflow/pkg/storage"
	"github.com/rareaward/formflow/pkg/submit"
	"github.com/rareaward/formflow/pkg/validation"
)

// FormatVersion is attached to every submission payload so the endpoint can
// distinguish incompatible aggregates later.
const FormatVersion = "2024-1"

const (
	// DefaultAutosaveDebounce is the quiet window before in-progress values
	// are persisted.
	DefaultAutosaveDebounce = 2 * time.Second
	// DefaultRedirectDelay is how long the confirmation stays visible before
	// the redirect hook fires.
	DefaultRedirectDelay = 3 * time.Second
)

var (
	// ErrStepInvalid is returned by Next when the current step fails
	// validation. The step's fields are marked touched so messages surface.
	ErrStepInvalid = errors.New("session: current step is not valid")
	// ErrStepLocked is returned by JumpTo for steps beyond the highest one
	// already reached.
	ErrStepLocked = errors.New("session: cannot skip ahead")
	// ErrSubmitInFlight is returned when a submission is already pending.
	ErrSubmitInFlight = errors.New("session: submission already in flight")
	// ErrFormIncomplete is returned by Submit while required fields are
	// missing or invalid.
	ErrFormIncomplete = errors.New("session: form is not complete")
)

// Hooks are optional side effects the controller fires around submission.
// Nil hooks are skipped.
type Hooks struct {
	// Celebrate runs once after a successful submission.
	Celebrate func()
	// Redirect receives the confirmation URL after the redirect delay.
	Redirect func(url string)
	// SubmitFailed receives submission errors alongside the returned error.
	SubmitFailed func(err error)
}

// Option configures a Session.
type Option func(*Session)

// WithStorage injects the storage adapter used for autosave, drafts, and the
// session-scoped reference code.
func WithStorage(store *storage.Adapter) Option {
	return func(s *Session) {
		if store != nil {
			s.store = store
		}
	}
}

// WithValidator injects the validation engine.
func WithValidator(engine *validation.Engine) Option {
	return func(s *Session) {
		if engine != nil {
			s.validator = engine
		}
	}
}

// WithClient injects the submission client.
func WithClient(client submit.Client) Option {
	return func(s *Session) {
		if client != nil {
			s.client = client
		}
	}
}

// WithHooks installs the side-effect hooks.
func WithHooks(hooks Hooks) Option {
	return func(s *Session) {
		s.hooks = hooks
	}
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) {
		s.log = log
	}
}

// WithDraftCap bounds the stored draft list.
func WithDraftCap(cap int) Option {
	return func(s *Session) {
		if cap > 0 {
			s.draftCap = cap
		}
	}
}

// WithAutosaveDebounce overrides the autosave quiet window.
func WithAutosaveDebounce(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.debounce = d
		}
	}
}

// WithRedirectDelay overrides the post-success redirect delay.
func WithRedirectDelay(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.redirectDelay = d
		}
	}
}

// WithConfirmationURL sets the URL handed to the redirect hook.
func WithConfirmationURL(url string) Option {
	return func(s *Session) {
		if url != "" {
			s.confirmationURL = url
		}
	}
}

// Session is a single user's pass through the form. Methods are safe for
// concurrent use, though the expected access pattern is one event at a time.
type Session struct {
	mu  sync.Mutex
	def nomination.Definition

	values  map[string]any
	touched map[string]bool
	step    int
	highest int
	draftID string
	busy    bool
	lastErr error

	store     *storage.Adapter
	validator *validation.Engine
	client    submit.Client
	hooks     Hooks
	log       zerolog.Logger
	sanitizer *bluemonday.Policy

	scheduler       *Scheduler
	redirectTimer   *time.Timer
	draftCap        int
	debounce        time.Duration
	redirectDelay   time.Duration
	confirmationURL string
}

// New constructs a Session at step 1 with empty values. Missing collaborators
// get working defaults (in-memory storage, fresh validation engine); a client
// is only required once Submit is reached.
func New(def nomination.Definition, options ...Option) *Session {
	s := &Session{
		def:             def,
		values:          make(map[string]any),
		touched:         make(map[string]bool),
		step:            1,
		highest:         1,
		log:             zerolog.Nop(),
		sanitizer:       bluemonday.StrictPolicy(),
		draftCap:        DefaultDraftCap,
		debounce:        DefaultAutosaveDebounce,
		redirectDelay:   DefaultRedirectDelay,
		confirmationURL: "/confirmation",
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.store == nil {
		s.store = storage.New()
	}
	if s.validator == nil {
		s.validator = validation.New()
	}
	s.scheduler = NewScheduler(s.debounce)
	return s
}

// Definition returns the form this session is driving.
func (s *Session) Definition() nomination.Definition {
	return s.def
}

// Step reports the current 1-based step.
func (s *Session) Step() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// SetValue records a field value in the aggregate and schedules a debounced
// autosave. Unknown field names are stored as-is; validation decides later.
func (s *Session) SetValue(name string, value any) {
	s.mu.Lock()
	s.values[name] = value
	s.mu.Unlock()
	s.scheduleAutosave()
}

// Value returns the current value for a field.
func (s *Session) Value(name string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[name]
}

// Values returns a copy of the aggregate.
func (s *Session) Values() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneValues(s.values)
}

// Touch marks a field as touched, enabling its error display.
func (s *Session) Touch(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched[name] = true
}

// FieldError returns the message to display for a field: the first violation
// when the field is both invalid and touched, otherwise "". Untouched fields
// stay silent so errors do not flash during initial render.
func (s *Session) FieldError(name string) string {
	field, _, ok := s.def.FieldByName(name)
	if !ok {
		return ""
	}

	s.mu.Lock()
	touched := s.touched[name]
	value := s.values[name]
	s.mu.Unlock()

	if !touched {
		return ""
	}
	return s.validator.ValidateField(field, value).Message()
}

// StepCompletion reports the completion percentage for a 1-based step.
func (s *Session) StepCompletion(step int) int {
	return s.validator.ValidateStep(s.def, step, s.Values()).Completion()
}

// Completion reports the completion percentage across the whole form.
func (s *Session) Completion() int {
	return s.validator.ValidateAll(s.def, s.Values()).Completion()
}

// CanSubmit reports whether every required field across all steps is valid.
// UI layers use it to toggle the submit control.
func (s *Session) CanSubmit() bool {
	result := s.validator.ValidateAll(s.def, s.Values())
	return result.RequiredValid == result.RequiredTotal
}

// Next advances to the following step when the current one validates. On the
// final step it submits instead. A failed validation marks the step's fields
// touched and returns ErrStepInvalid.
func (s *Session) Next(ctx context.Context) error {
	s.mu.Lock()
	current := s.step
	values := cloneValues(s.values)
	s.mu.Unlock()

	result := s.validator.ValidateStep(s.def, current, values)
	if !result.Valid {
		s.touchStep(current)
		return ErrStepInvalid
	}

	if current >= s.def.StepCount() {
		return s.Submit(ctx)
	}

	s.mu.Lock()
	s.step = current + 1
	if s.step > s.highest {
		s.highest = s.step
	}
	s.mu.Unlock()

	s.scheduleAutosave()
	return nil
}

// Prev moves back one step. It is never gated.
func (s *Session) Prev() {
	s.mu.Lock()
	if s.step > 1 {
		s.step--
	}
	s.mu.Unlock()
	s.scheduleAutosave()
}

// JumpTo moves directly to a step already reached. Jumping ahead of the
// highest reached step returns ErrStepLocked.
func (s *Session) JumpTo(step int) error {
	s.mu.Lock()
	if step < 1 || step > s.def.StepCount() {
		s.mu.Unlock()
		return fmt.Errorf("session: step %d out of range", step)
	}
	if step > s.highest {
		s.mu.Unlock()
		return ErrStepLocked
	}
	s.step = step
	s.mu.Unlock()

	s.scheduleAutosave()
	return nil
}

// Submit validates the whole form, posts the aggregate, and on success clears
// autosave state, stores the reference code in the session scope, fires the
// celebration hook, and schedules the redirect. Failures leave every value in
// place for a manual retry; nothing retries automatically. A second call
// while one is pending returns ErrSubmitInFlight.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrSubmitInFlight
	}
	s.busy = true
	values := cloneValues(s.values)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	result := s.validator.ValidateAll(s.def, values)
	if result.RequiredValid != result.RequiredTotal || !result.Valid {
		s.touchAll()
		return ErrFormIncomplete
	}
	if s.client == nil {
		return errors.New("session: no submission client configured")
	}

	payload := submit.Payload{
		FormID:        s.def.ID,
		FormatVersion: FormatVersion,
		SubmittedAt:   time.Now().UTC(),
		Values:        s.sanitizeValues(values),
	}

	receipt, err := s.client.Submit(ctx, payload)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		s.log.Warn().Err(err).Msg("submission failed")
		if s.hooks.SubmitFailed != nil {
			s.hooks.SubmitFailed(err)
		}
		return err
	}

	s.completeSubmission(receipt)
	return nil
}

// SubmitError returns the most recent submission failure, or nil.
func (s *Session) SubmitError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Reference returns the reference code stored by the last successful
// submission in this process.
func (s *Session) Reference() (string, bool) {
	return s.store.GetString(storage.ScopeSession, s.referenceKey())
}

// Close stops the autosave scheduler and any pending redirect timer.
func (s *Session) Close() {
	s.scheduler.Stop()
	s.mu.Lock()
	if s.redirectTimer != nil {
		s.redirectTimer.Stop()
		s.redirectTimer = nil
	}
	s.mu.Unlock()
}

func (s *Session) completeSubmission(receipt submit.Receipt) {
	s.scheduler.Stop()
	s.store.Remove(storage.ScopePersistent, s.autosaveKey())
	s.store.Set(storage.ScopeSession, s.referenceKey(), receipt.ReferenceNumber)

	s.mu.Lock()
	s.values = make(map[string]any)
	s.touched = make(map[string]bool)
	s.step = 1
	s.highest = 1
	s.draftID = ""
	s.lastErr = nil
	s.mu.Unlock()

	s.log.Info().Str("reference", receipt.ReferenceNumber).Msg("nomination submitted")

	if s.hooks.Celebrate != nil {
		s.hooks.Celebrate()
	}
	if s.hooks.Redirect != nil {
		url := s.confirmationURL
		s.mu.Lock()
		s.redirectTimer = time.AfterFunc(s.redirectDelay, func() {
			s.hooks.Redirect(url)
		})
		s.mu.Unlock()
	}
}

func (s *Session) sanitizeValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for name, value := range values {
		if text, ok := value.(string); ok {
			out[name] = s.sanitizer.Sanitize(text)
			continue
		}
		out[name] = value
	}
	return out
}

func (s *Session) touchStep(step int) {
	st, ok := s.def.StepAt(step)
	if !ok {
		return
	}
	s.mu.Lock()
	for _, field := range st.Fields {
		s.touched[field.Name] = true
	}
	s.mu.Unlock()
}

func (s *Session) touchAll() {
	s.mu.Lock()
	for _, field := range s.def.Fields() {
		s.touched[field.Name] = true
	}
	s.mu.Unlock()
}
