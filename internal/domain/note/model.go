package note

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/domain/template"
)

// NoteDocument maps to the clinical_note table: a clinician's filled
// instance of a template. TemplateID references the exact template version
// row the note was created against; later versions of the lineage never
// change what an existing note validates or renders with.
type NoteDocument struct {
	ID             uuid.UUID          `db:"id" json:"id"`
	TemplateID     uuid.UUID          `db:"template_id" json:"template_id"`
	PatientID      uuid.UUID          `db:"patient_id" json:"patient_id"`
	PractitionerID uuid.UUID          `db:"practitioner_id" json:"practitioner_id"`
	Content        template.ValueTree `db:"content" json:"content"`
	IsDraft        bool               `db:"is_draft" json:"is_draft"`
	IsSigned       bool               `db:"is_signed" json:"is_signed"`
	SignedAt       *time.Time         `db:"signed_at" json:"signed_at,omitempty"`
	LastAutosaveAt *time.Time         `db:"last_autosave_at" json:"last_autosave_at,omitempty"`
	CreatedAt      time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `db:"updated_at" json:"updated_at"`
}
