package note

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/domain/template"
)

// Editor is a single client session editing one draft note. It owns the
// in-memory value tree, runs the periodic background autosave, and enforces
// the draft -> signed state machine on the client side of the store.
//
// The tree field is the "latest value" cell: edits replace it with a new
// immutable snapshot, and the autosave tick reads it at fire time, so a
// save never ships a tree that was already superseded when the tick fired.
// The inFlight flag is the single-writer guard: while any save or sign is
// outstanding no second write is dispatched, and an autosave tick that
// lands during one is skipped, not queued.
type Editor struct {
	svc            *Service
	log            zerolog.Logger
	noteID         uuid.UUID
	practitionerID uuid.UUID
	interval       time.Duration
	sections       []template.SectionDefinition

	mu       sync.Mutex
	tree     template.ValueTree
	gen      uint64
	dirty    bool
	inFlight bool
	signed   bool
	started  bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewEditor loads the note and the template version it was created against.
// A load failure is fatal to the session: there is no editable tree without
// a template. A signed note still loads, read-only.
func NewEditor(ctx context.Context, svc *Service, logger zerolog.Logger, noteID, practitionerID uuid.UUID, autosaveInterval time.Duration) (*Editor, error) {
	n, err := svc.GetNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	tpl, err := svc.Template(ctx, n.TemplateID)
	if err != nil {
		return nil, err
	}

	return &Editor{
		svc:            svc,
		log:            logger,
		noteID:         noteID,
		practitionerID: practitionerID,
		interval:       autosaveInterval,
		sections:       tpl.Structure.Sections,
		tree:           n.Content.Clone(),
		signed:         n.IsSigned,
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}, nil
}

// Start launches the background autosave task. It is a no-op for signed
// notes, a non-positive interval, or a session that already started.
func (e *Editor) Start(ctx context.Context) {
	e.mu.Lock()
	if e.started || e.signed || e.interval <= 0 {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.mu.Unlock()

	go e.autosaveLoop(ctx)
}

func (e *Editor) autosaveLoop(ctx context.Context) {
	defer close(e.done)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stop:
			return
		case <-ticker.C:
			if terminal := e.autosaveTick(ctx); terminal {
				return
			}
		}
	}
}

// autosaveTick performs one background save and reports whether the loop
// should exit because the note is signed. Ticks with no unsaved edits are
// skipped. Store failures are swallowed: the tree stays dirty and is retried
// on the next tick.
func (e *Editor) autosaveTick(ctx context.Context) bool {
	e.mu.Lock()
	if e.signed {
		e.mu.Unlock()
		return true
	}
	if e.inFlight {
		// A write is outstanding; skip this tick rather than queueing a
		// second write that could commit out of order.
		e.mu.Unlock()
		return false
	}
	if !e.dirty {
		e.mu.Unlock()
		return false
	}
	tree := e.tree
	gen := e.gen
	e.inFlight = true
	e.mu.Unlock()

	_, err := e.svc.SaveContent(ctx, e.noteID, e.practitionerID, tree, true)

	e.mu.Lock()
	e.inFlight = false
	if err == nil && e.gen == gen {
		e.dirty = false
	}
	if errors.Is(err, ErrImmutableDocument) {
		e.signed = true
	}
	terminal := e.signed
	e.mu.Unlock()

	if err != nil && !errors.Is(err, ErrImmutableDocument) {
		e.log.Debug().Err(err).Str("note_id", e.noteID.String()).
			Msg("autosave failed, will retry on next tick")
	}
	return terminal
}

// Edit stores value at the given path in the session's tree. The update is
// copy-on-write: a fresh snapshot replaces the cell and the previous
// snapshot is never mutated. Rejected once the note is signed.
func (e *Editor) Edit(value any, path ...string) error {
	if len(path) == 0 {
		return errors.New("edit requires a field path")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.signed {
		return ErrImmutableDocument
	}
	e.tree = template.Set(e.tree, value, path...)
	e.gen++
	e.dirty = true
	return nil
}

// Tree returns the current value tree snapshot.
func (e *Editor) Tree() template.ValueTree {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tree
}

// Signed reports whether the session's note has been signed.
func (e *Editor) Signed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.signed
}

// Save persists the current tree as an explicit user action. It returns the
// validator's advisory per-field messages alongside the save result; unlike
// Sign, missing required fields do not block a manual save. On a store
// failure the local tree is untouched so no edits are lost.
func (e *Editor) Save(ctx context.Context) (map[string]string, error) {
	e.mu.Lock()
	if e.signed {
		e.mu.Unlock()
		return nil, ErrImmutableDocument
	}
	if e.inFlight {
		e.mu.Unlock()
		return nil, ErrSaveInFlight
	}
	tree := e.tree
	gen := e.gen
	e.inFlight = true
	e.mu.Unlock()

	warnings := template.ValidateContent(e.sections, tree)
	_, err := e.svc.SaveContent(ctx, e.noteID, e.practitionerID, tree, false)

	e.mu.Lock()
	e.inFlight = false
	if err == nil && e.gen == gen {
		e.dirty = false
	}
	e.mu.Unlock()

	if err != nil {
		return warnings, err
	}
	return warnings, nil
}

// Sign runs the blocking validation and freezes the note. On success the
// session becomes read-only and the autosave task stops permanently.
func (e *Editor) Sign(ctx context.Context) (*NoteDocument, error) {
	e.mu.Lock()
	if e.signed {
		e.mu.Unlock()
		return nil, ErrImmutableDocument
	}
	if e.inFlight {
		e.mu.Unlock()
		return nil, ErrSaveInFlight
	}
	tree := e.tree
	e.inFlight = true
	e.mu.Unlock()

	n, err := e.svc.Sign(ctx, e.noteID, e.practitionerID, tree)

	e.mu.Lock()
	e.inFlight = false
	if err == nil {
		e.signed = true
	}
	e.mu.Unlock()

	if err == nil {
		e.stopAutosave()
	}
	return n, err
}

// Close cancels the autosave task and waits for it to exit. Safe to call
// multiple times and on sessions that never started.
func (e *Editor) Close() {
	e.stopAutosave()
	e.mu.Lock()
	started := e.started
	e.mu.Unlock()
	if started {
		<-e.done
	}
}

func (e *Editor) stopAutosave() {
	e.stopOnce.Do(func() { close(e.stop) })
}
