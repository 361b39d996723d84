package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rareaward/formflow/pkg/storage"
)

// DefaultDraftCap bounds the stored draft list. The oldest draft is evicted
// when a save would exceed it.
const DefaultDraftCap = 5

// Draft is an explicitly named snapshot of in-progress form state, distinct
// from the rolling autosave.
type Draft struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	FormData    map[string]any `json:"formData"`
	CurrentStep int            `json:"currentStep"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// ErrDraftNotFound is returned when loading or deleting an unknown draft id.
var ErrDraftNotFound = errors.New("session: draft not found")

// SaveDraft snapshots the current aggregate under the given name and prepends
// it to the stored list, evicting the oldest entries beyond the cap.
func (s *Session) SaveDraft(name string) (Draft, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Draft{}, errors.New("session: draft name is required")
	}

	s.mu.Lock()
	draft := Draft{
		ID:          uuid.NewString(),
		Name:        name,
		FormData:    cloneValues(s.values),
		CurrentStep: s.step,
		CreatedAt:   time.Now().UTC(),
	}
	s.draftID = draft.ID
	s.mu.Unlock()

	drafts := append([]Draft{draft}, s.Drafts()...)
	if len(drafts) > s.draftCap {
		drafts = drafts[:s.draftCap]
	}
	s.store.Set(storage.ScopePersistent, s.draftsKey(), drafts)

	s.log.Debug().Str("draft", draft.ID).Str("name", name).Msg("draft saved")
	s.scheduleAutosave()
	return draft, nil
}

// Drafts returns the stored draft list, most recent first. Corrupted entries
// decode to an empty list rather than failing.
func (s *Session) Drafts() []Draft {
	raw, ok := s.store.Get(storage.ScopePersistent, s.draftsKey())
	if !ok {
		return nil
	}
	var drafts []Draft
	if err := reencode(raw, &drafts); err != nil {
		s.log.Warn().Err(err).Msg("stored drafts are malformed, treating as absent")
		return nil
	}
	return drafts
}

// LoadDraft overwrites the aggregate and resumes at the draft's saved step.
func (s *Session) LoadDraft(id string) error {
	for _, draft := range s.Drafts() {
		if draft.ID != id {
			continue
		}

		s.mu.Lock()
		s.values = cloneValues(draft.FormData)
		s.step = clampStep(draft.CurrentStep, s.def.StepCount())
		if s.step > s.highest {
			s.highest = s.step
		}
		s.draftID = draft.ID
		s.touched = make(map[string]bool)
		s.mu.Unlock()

		s.scheduleAutosave()
		return nil
	}
	return fmt.Errorf("%w: %s", ErrDraftNotFound, id)
}

// DeleteDraft removes a draft by id.
func (s *Session) DeleteDraft(id string) error {
	drafts := s.Drafts()
	kept := drafts[:0]
	for _, draft := range drafts {
		if draft.ID != id {
			kept = append(kept, draft)
		}
	}
	if len(kept) == len(drafts) {
		return fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	s.store.Set(storage.ScopePersistent, s.draftsKey(), kept)
	return nil
}

// reencode round-trips a decoded storage value into a typed target. Storage
// hands back generic maps; this is the symmetric way to regain structure.
func reencode(value any, target any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

func clampStep(step, max int) int {
	if step < 1 {
		return 1
	}
	if step > max {
		return max
	}
	return step
}

func cloneValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for key, value := range values {
		switch v := value.(type) {
		case []string:
			out[key] = append([]string(nil), v...)
		case []any:
			out[key] = append([]any(nil), v...)
		default:
			out[key] = value
		}
	}
	return out
}
