package session

import (
	"time"

	"github.com/rareaward/formflow/pkg/storage"
)

// Snapshot is the rolling autosave record. It is overwritten on every flush
// and cleared by a successful submission.
type Snapshot struct {
	FormData    map[string]any `json:"formData"`
	CurrentStep int            `json:"currentStep"`
	Timestamp   time.Time      `json:"timestamp"`
	DraftID     string         `json:"draftId,omitempty"`
}

// The autosave key carries the adapter's disposable prefix so a quota-pressed
// store may evict it ahead of drafts.
func (s *Session) autosaveKey() string {
	return "autosave:" + s.def.ID
}

func (s *Session) draftsKey() string {
	return "drafts:" + s.def.ID
}

func (s *Session) referenceKey() string {
	return "reference:" + s.def.ID
}

// scheduleAutosave queues a debounced write of the current aggregate. Rapid
// successive edits collapse into a single write; last write wins.
func (s *Session) scheduleAutosave() {
	s.scheduler.Schedule(s.flushAutosave)
}

// FlushAutosave persists the pending autosave immediately. UI layers call it
// before unload; tests use it to avoid waiting out the debounce window.
func (s *Session) FlushAutosave() {
	s.scheduler.Flush()
}

func (s *Session) flushAutosave() {
	s.mu.Lock()
	snapshot := Snapshot{
		FormData:    cloneValues(s.values),
		CurrentStep: s.step,
		Timestamp:   time.Now().UTC(),
		DraftID:     s.draftID,
	}
	s.mu.Unlock()

	s.store.Set(storage.ScopePersistent, s.autosaveKey(), snapshot)
	s.log.Debug().Int("step", snapshot.CurrentStep).Msg("autosave flushed")
}

// RestoreAutosave loads the last autosave snapshot back into the session,
// returning false when none exists or the stored record is malformed.
// Malformed records are treated as absent, never as failures.
func (s *Session) RestoreAutosave() bool {
	raw, ok := s.store.Get(storage.ScopePersistent, s.autosaveKey())
	if !ok {
		return false
	}

	var snapshot Snapshot
	if err := reencode(raw, &snapshot); err != nil {
		s.log.Warn().Err(err).Msg("autosave snapshot is malformed, ignoring")
		return false
	}
	if snapshot.FormData == nil {
		return false
	}

	s.mu.Lock()
	s.values = cloneValues(snapshot.FormData)
	s.step = clampStep(snapshot.CurrentStep, s.def.StepCount())
	if s.step > s.highest {
		s.highest = s.step
	}
	s.draftID = snapshot.DraftID
	s.touched = make(map[string]bool)
	s.mu.Unlock()
	return true
}
