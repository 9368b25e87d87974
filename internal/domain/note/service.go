package note

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/domain/template"
)

// TemplateStore is the slice of the template domain the note lifecycle
// needs: resolving the exact template version a note was created against.
type TemplateStore interface {
	GetTemplate(ctx context.Context, id uuid.UUID) (*template.TemplateDefinition, error)
}

// Service owns the note lifecycle: draft creation, content saves (manual and
// autosave), and the terminal sign transition.
type Service struct {
	notes     Repository
	templates TemplateStore
	now       func() time.Time
}

func NewService(notes Repository, templates TemplateStore) *Service {
	return &Service{notes: notes, templates: templates, now: time.Now}
}

// CreateNote opens a draft against the template version that is current at
// creation time. The note keeps pointing at that exact version row; newer
// versions in the lineage never affect it.
func (s *Service) CreateNote(ctx context.Context, templateID, patientID, practitionerID uuid.UUID) (*NoteDocument, error) {
	tpl, err := s.templates.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if tpl.IsArchived || !tpl.IsActive {
		return nil, &template.ValidationError{
			Reason: "template is not available for new notes",
		}
	}

	n := &NoteDocument{
		TemplateID:     tpl.ID,
		PatientID:      patientID,
		PractitionerID: practitionerID,
		Content:        template.ValueTree{},
		IsDraft:        true,
	}
	if err := s.notes.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) GetNote(ctx context.Context, id uuid.UUID) (*NoteDocument, error) {
	return s.notes.GetByID(ctx, id)
}

// Template resolves the template version a note was created against.
func (s *Service) Template(ctx context.Context, templateID uuid.UUID) (*template.TemplateDefinition, error) {
	return s.templates.GetTemplate(ctx, templateID)
}

// SaveContent persists the value tree of a draft. Only the owning
// practitioner may write; a signed note rejects the write with
// ErrImmutableDocument. Autosaves additionally stamp last_autosave_at.
func (s *Service) SaveContent(ctx context.Context, id, practitionerID uuid.UUID, tree template.ValueTree, isAutosave bool) (*NoteDocument, error) {
	n, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.IsSigned {
		return nil, ErrImmutableDocument
	}
	if n.PractitionerID != practitionerID {
		return nil, ErrNotOwner
	}

	var autosavedAt *time.Time
	if isAutosave {
		t := s.now()
		autosavedAt = &t
	}
	return s.notes.UpdateContent(ctx, id, tree, autosavedAt)
}

// ValidateDraft runs the content validator against the note's template and
// returns the per-field error map. Callers use it before a manual save
// (advisory) and it is what Sign enforces (blocking).
func (s *Service) ValidateDraft(ctx context.Context, id uuid.UUID, tree template.ValueTree) (map[string]string, error) {
	n, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	tpl, err := s.templates.GetTemplate(ctx, n.TemplateID)
	if err != nil {
		return nil, err
	}
	return template.ValidateContent(tpl.Structure.Sections, tree), nil
}

// Sign validates the tree and, when clean, freezes the note. Any missing
// required field fails the sign with a ValidationError before the store is
// touched. A signed note can never be signed, saved, or edited again.
func (s *Service) Sign(ctx context.Context, id, practitionerID uuid.UUID, tree template.ValueTree) (*NoteDocument, error) {
	n, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.IsSigned {
		return nil, ErrImmutableDocument
	}
	if n.PractitionerID != practitionerID {
		return nil, ErrNotOwner
	}

	tpl, err := s.templates.GetTemplate(ctx, n.TemplateID)
	if err != nil {
		return nil, err
	}
	if fieldErrs := template.ValidateContent(tpl.Structure.Sections, tree); len(fieldErrs) > 0 {
		return nil, &template.ValidationError{
			Reason: "note has missing required fields",
			Fields: fieldErrs,
		}
	}

	return s.notes.Sign(ctx, id, tree, s.now())
}

// RenderForm renders the note's editable form: its template's sections
// against the current value tree.
func (s *Service) RenderForm(ctx context.Context, id uuid.UUID) ([]template.SectionView, error) {
	n, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	tpl, err := s.templates.GetTemplate(ctx, n.TemplateID)
	if err != nil {
		return nil, err
	}
	return template.RenderForm(tpl.Structure.Sections, n.Content), nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*NoteDocument, int, error) {
	return s.notes.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByPractitioner(ctx context.Context, practitionerID uuid.UUID, limit, offset int) ([]*NoteDocument, int, error) {
	return s.notes.ListByPractitioner(ctx, practitionerID, limit, offset)
}
