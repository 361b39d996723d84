package session

import (
	"context"
	"errors"
	"testing"

	"github.com/rareaward/formflow/pkg/nomination"
	"github.com/rareaward/formflow/pkg/storage"
)

func TestSaveDraft_RequiresName(t *testing.T) {
	sess := New(nomination.Default())
	defer sess.Close()

	if _, err := sess.SaveDraft("   "); err == nil {
		t.Fatalf("expected error for blank name")
	}
}

func TestDraft_RoundTrip(t *testing.T) {
	store := storage.New()
	sess := New(nomination.Default(), WithStorage(store))
	defer sess.Close()

	fillStep(sess, step1Values())
	if err := sess.Next(context.Background()); err != nil {
		t.Fatalf("next: %v", err)
	}
	draft, err := sess.SaveDraft("first pass")
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if draft.CurrentStep != 2 {
		t.Fatalf("expected draft at step 2, got %d", draft.CurrentStep)
	}

	// Wander off, change answers, then come back.
	sess.SetValue("nominatorName", "Someone Else")
	sess.Prev()

	if err := sess.LoadDraft(draft.ID); err != nil {
		t.Fatalf("load draft: %v", err)
	}
	if got, _ := sess.Value("nominatorName").(string); got != "Grace Hopper" {
		t.Fatalf("expected draft values restored, got %q", got)
	}
	if got := sess.Step(); got != 2 {
		t.Fatalf("expected draft step restored, got %d", got)
	}
	// Restored fields start untouched so stale errors do not flash.
	if msg := sess.FieldError("nominatorName"); msg != "" {
		t.Fatalf("expected no visible error after restore, got %q", msg)
	}
}

func TestDraft_SurvivesSessionRestart(t *testing.T) {
	store := storage.New()
	first := New(nomination.Default(), WithStorage(store))
	fillStep(first, step1Values())
	draft, err := first.SaveDraft("before restart")
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}
	first.Close()

	second := New(nomination.Default(), WithStorage(store))
	defer second.Close()
	if err := second.LoadDraft(draft.ID); err != nil {
		t.Fatalf("load draft after restart: %v", err)
	}
	if got, _ := second.Value("nominatorEmail").(string); got != "grace@example.com" {
		t.Fatalf("expected persisted draft values, got %q", got)
	}
}

func TestDraft_CapEvictsOldest(t *testing.T) {
	sess := New(nomination.Default(), WithDraftCap(2))
	defer sess.Close()

	for _, name := range []string{"oldest", "middle", "newest"} {
		if _, err := sess.SaveDraft(name); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}

	drafts := sess.Drafts()
	if len(drafts) != 2 {
		t.Fatalf("expected cap of 2, got %d", len(drafts))
	}
	if drafts[0].Name != "newest" || drafts[1].Name != "middle" {
		t.Fatalf("expected newest first and oldest evicted, got %q then %q", drafts[0].Name, drafts[1].Name)
	}
}

func TestDraft_DeleteAndMissing(t *testing.T) {
	sess := New(nomination.Default())
	defer sess.Close()

	draft, err := sess.SaveDraft("disposable")
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if err := sess.DeleteDraft(draft.ID); err != nil {
		t.Fatalf("delete draft: %v", err)
	}
	if len(sess.Drafts()) != 0 {
		t.Fatalf("expected empty draft list")
	}
	if err := sess.DeleteDraft(draft.ID); !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("expected ErrDraftNotFound, got %v", err)
	}
	if err := sess.LoadDraft("nope"); !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("expected ErrDraftNotFound, got %v", err)
	}
}

func TestDrafts_MalformedListTreatedAsEmpty(t *testing.T) {
	store := storage.New()
	sess := New(nomination.Default(), WithStorage(store))
	defer sess.Close()

	store.Set(storage.ScopePersistent, "drafts:"+sess.Definition().ID, "best draft ever")
	if drafts := sess.Drafts(); drafts != nil {
		t.Fatalf("expected malformed list to read as empty, got %v", drafts)
	}
}
