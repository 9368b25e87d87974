package note

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/domain/template"
)

type Repository interface {
	Create(ctx context.Context, n *NoteDocument) error
	GetByID(ctx context.Context, id uuid.UUID) (*NoteDocument, error)
	// UpdateContent replaces the draft's value tree. autosavedAt, when
	// non-nil, stamps last_autosave_at. The update is guarded against
	// signed rows; attempting one returns ErrImmutableDocument.
	UpdateContent(ctx context.Context, id uuid.UUID, content template.ValueTree, autosavedAt *time.Time) (*NoteDocument, error)
	// Sign freezes the note: persists content, flips is_signed, clears the
	// draft flag, and stamps signed_at, all guarded against already-signed
	// rows.
	Sign(ctx context.Context, id uuid.UUID, content template.ValueTree, signedAt time.Time) (*NoteDocument, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*NoteDocument, int, error)
	ListByPractitioner(ctx context.Context, practitionerID uuid.UUID, limit, offset int) ([]*NoteDocument, int, error)
}
