package note

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/domain/template"
)

func newTestEditor(t *testing.T, f *fixture, n *NoteDocument) *Editor {
	t.Helper()
	e, err := NewEditor(context.Background(), f.svc, zerolog.Nop(), n.ID, f.practitioner, time.Minute)
	if err != nil {
		t.Fatalf("new editor: %v", err)
	}
	return e
}

func TestEditor_EditUpdatesLocalTree(t *testing.T) {
	f := newFixture(t)
	e := newTestEditor(t, f, f.createNote(t))

	if err := e.Edit(37.5, "temperature"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := e.Tree().Get("temperature"); v != 37.5 {
		t.Errorf("edit not applied: %v", e.Tree())
	}
	// The store is untouched until a save runs.
	if f.repo.updates != 0 {
		t.Error("edit must not write to the store")
	}
}

func TestEditor_EditRequiresPath(t *testing.T) {
	f := newFixture(t)
	e := newTestEditor(t, f, f.createNote(t))
	if err := e.Edit("x"); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestEditor_AutosaveTickWritesLatestTree(t *testing.T) {
	f := newFixture(t)
	n := f.createNote(t)
	e := newTestEditor(t, f, n)

	if err := e.Edit(37.5, "temperature"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if terminal := e.autosaveTick(context.Background()); terminal {
		t.Fatal("tick on a draft must not be terminal")
	}

	saved, _ := f.svc.GetNote(context.Background(), n.ID)
	if v, _ := saved.Content.Get("temperature"); v != 37.5 {
		t.Errorf("autosave did not persist the latest tree: %v", saved.Content)
	}
	if saved.LastAutosaveAt == nil {
		t.Error("autosave must stamp last_autosave_at")
	}
}

func TestEditor_AutosaveTickSkipsCleanTree(t *testing.T) {
	f := newFixture(t)
	e := newTestEditor(t, f, f.createNote(t))

	if err := e.Edit(37.5, "temperature"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if terminal := e.autosaveTick(context.Background()); terminal {
		t.Fatal("tick on a draft must not be terminal")
	}
	// No edits since the last save; the next tick has nothing to write.
	if terminal := e.autosaveTick(context.Background()); terminal {
		t.Fatal("skipped tick must not be terminal")
	}
	if f.repo.updates != 1 {
		t.Errorf("clean tree must not be re-saved, got %d writes", f.repo.updates)
	}
}

func TestEditor_AutosaveTickSkippedWhileWriteInFlight(t *testing.T) {
	f := newFixture(t)
	e := newTestEditor(t, f, f.createNote(t))

	if err := e.Edit(37.5, "temperature"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	e.mu.Lock()
	e.inFlight = true
	e.mu.Unlock()

	if terminal := e.autosaveTick(context.Background()); terminal {
		t.Fatal("skipped tick must not be terminal")
	}
	if f.repo.updates != 0 {
		t.Error("tick must be skipped, not queued, while a write is outstanding")
	}
}

func TestEditor_EditDuringInFlightAutosaveIsNotLost(t *testing.T) {
	f := newFixture(t)
	e := newTestEditor(t, f, f.createNote(t))

	if err := e.Edit(1.0, "temperature"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	f.repo.updateEntered = make(chan struct{})
	f.repo.updateRelease = make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.autosaveTick(context.Background())
	}()

	// The first tick is parked inside the store call; edit under it.
	<-f.repo.updateEntered
	if err := e.Edit(2.0, "temperature"); err != nil {
		t.Fatalf("edit during in-flight save: %v", err)
	}
	close(f.repo.updateRelease)
	<-done
	f.repo.updateEntered = nil
	f.repo.updateRelease = nil

	// The mid-flight edit keeps the tree dirty, so the next tick must run
	// and ship the newer snapshot.
	if terminal := e.autosaveTick(context.Background()); terminal {
		t.Fatal("tick on a draft must not be terminal")
	}
	if f.repo.updates != 2 {
		t.Fatalf("expected a second write for the mid-flight edit, got %d", f.repo.updates)
	}
	saved, _ := f.svc.GetNote(context.Background(), e.noteID)
	if v, _ := saved.Content.Get("temperature"); v != 2.0 {
		t.Errorf("the edit made during the in-flight save was lost: %v", saved.Content)
	}
}

func TestEditor_AutosaveSwallowsStoreErrors(t *testing.T) {
	f := newFixture(t)
	e := newTestEditor(t, f, f.createNote(t))
	if err := e.Edit("wip", "notes"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	f.repo.failing = true
	if terminal := e.autosaveTick(context.Background()); terminal {
		t.Fatal("store failure must not stop the autosave loop")
	}

	// The unchanged tree is retried on the next tick once the store recovers.
	f.repo.failing = false
	if terminal := e.autosaveTick(context.Background()); terminal {
		t.Fatal("recovered tick must not be terminal")
	}
	if f.repo.updates != 1 {
		t.Errorf("expected one successful autosave after recovery, got %d", f.repo.updates)
	}
}

func TestEditor_AutosaveStopsWhenNoteSignedElsewhere(t *testing.T) {
	f := newFixture(t)
	n := f.createNote(t)
	e := newTestEditor(t, f, n)
	if err := e.Edit("late observation", "notes"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	// Another session signs the note under this editor's feet.
	if _, err := f.svc.Sign(context.Background(), n.ID, f.practitioner,
		template.ValueTree{"temperature": 37.5}); err != nil {
		t.Fatalf("sign: %v", err)
	}

	if terminal := e.autosaveTick(context.Background()); !terminal {
		t.Fatal("tick against a signed note must be terminal")
	}
	if !e.Signed() {
		t.Error("editor should learn the note is signed")
	}
	if err := e.Edit("late", "notes"); !errors.Is(err, ErrImmutableDocument) {
		t.Errorf("edits after sign must be rejected, got %v", err)
	}
}

func TestEditor_SaveReturnsAdvisoryWarnings(t *testing.T) {
	f := newFixture(t)
	e := newTestEditor(t, f, f.createNote(t))
	if err := e.Edit("wip", "notes"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	warnings, err := e.Save(context.Background())
	if err != nil {
		t.Fatalf("incomplete draft must still save, got %v", err)
	}
	if warnings["temperature"] == "" {
		t.Errorf("save should report the missing required field, got %v", warnings)
	}
}

func TestEditor_SaveRejectedWhileWriteInFlight(t *testing.T) {
	f := newFixture(t)
	e := newTestEditor(t, f, f.createNote(t))

	e.mu.Lock()
	e.inFlight = true
	e.mu.Unlock()

	if _, err := e.Save(context.Background()); !errors.Is(err, ErrSaveInFlight) {
		t.Fatalf("expected ErrSaveInFlight, got %v", err)
	}
}

func TestEditor_SignStopsSession(t *testing.T) {
	f := newFixture(t)
	e := newTestEditor(t, f, f.createNote(t))
	if err := e.Edit(37.5, "temperature"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	n, err := e.Sign(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !n.IsSigned {
		t.Error("sign did not freeze the note")
	}
	if !e.Signed() {
		t.Error("editor should be read-only after sign")
	}
	if _, err := e.Save(context.Background()); !errors.Is(err, ErrImmutableDocument) {
		t.Errorf("save after sign must fail, got %v", err)
	}
	// Close returns promptly even though Start was never called.
	e.Close()
}

func TestEditor_SignIncompleteFailsWithoutFreezing(t *testing.T) {
	f := newFixture(t)
	e := newTestEditor(t, f, f.createNote(t))

	_, err := e.Sign(context.Background())
	var ve *template.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if e.Signed() {
		t.Error("failed sign must leave the session editable")
	}
	if err := e.Edit(37.5, "temperature"); err != nil {
		t.Errorf("editing after a failed sign should work, got %v", err)
	}
}

func TestEditor_StartAndCloseLifecycle(t *testing.T) {
	f := newFixture(t)
	e, err := NewEditor(context.Background(), f.svc, zerolog.Nop(), f.createNote(t).ID, f.practitioner, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("new editor: %v", err)
	}

	e.Start(context.Background())
	if err := e.Edit("wip", "notes"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	e.Close()

	saved, _ := f.svc.GetNote(context.Background(), e.noteID)
	if v, _ := saved.Content.Get("notes"); v != "wip" {
		t.Errorf("background autosave never persisted the tree: %v", saved.Content)
	}
}

func TestEditor_SignedNoteLoadsReadOnly(t *testing.T) {
	f := newFixture(t)
	n := f.createNote(t)
	if _, err := f.svc.Sign(context.Background(), n.ID, f.practitioner,
		template.ValueTree{"temperature": 37.5}); err != nil {
		t.Fatalf("sign: %v", err)
	}

	e := newTestEditor(t, f, n)
	if !e.Signed() {
		t.Error("editor for a signed note must open read-only")
	}
	e.Start(context.Background())
	e.Close()
}
