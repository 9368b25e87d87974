package template

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service is the template version manager: it owns the authoring rules for
// schemas and the lifecycle of a template lineage (create, in-place update,
// archive, version bump).
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// defaultStructureVersion marks the persisted schema shape so future shape
// changes can migrate old rows.
const defaultStructureVersion = "1"

// CreateTemplate validates and persists a brand-new template as version 1 of
// a fresh lineage, active and unarchived.
func (s *Service) CreateTemplate(ctx context.Context, t *TemplateDefinition) error {
	if t.Name == "" {
		return newValidationError("name is required")
	}
	if t.Category == "" {
		return newValidationError("category is required")
	}
	if !validCategories[t.Category] {
		return newValidationError("invalid category: %s", t.Category)
	}
	if err := ValidateStructure(t.Structure); err != nil {
		return err
	}
	NormalizeSections(t.Structure.Sections)
	if t.Structure.Version == "" {
		t.Structure.Version = defaultStructureVersion
	}

	t.ID = uuid.New()
	t.LineageID = t.ID
	t.Version = 1
	t.IsActive = true
	t.IsArchived = false
	return s.repo.Create(ctx, t)
}

// UpdatePatch is a partial in-place edit. Nil fields are left untouched.
type UpdatePatch struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Category    *Category  `json:"category,omitempty"`
	Structure   *Structure `json:"structure,omitempty"`
}

// UpdateTemplate edits a template in place without bumping its version.
// Once a later version exists in the lineage the row is frozen history and
// may no longer be edited; changes then go through CreateTemplateVersion.
func (s *Service) UpdateTemplate(ctx context.Context, id uuid.UUID, patch UpdatePatch) (*TemplateDefinition, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	versions, err := s.repo.ListByLineage(ctx, t.LineageID)
	if err != nil {
		return nil, err
	}
	for _, v := range versions {
		if v.Version > t.Version {
			return nil, newValidationError(
				"template version %d is superseded by version %d and can no longer be edited",
				t.Version, v.Version)
		}
	}

	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Description != nil {
		t.Description = patch.Description
	}
	if patch.Category != nil {
		t.Category = *patch.Category
	}
	if patch.Structure != nil {
		t.Structure = *patch.Structure
	}

	if t.Name == "" {
		return nil, newValidationError("name is required")
	}
	if !validCategories[t.Category] {
		return nil, newValidationError("invalid category: %s", t.Category)
	}
	if err := ValidateStructure(t.Structure); err != nil {
		return nil, err
	}
	NormalizeSections(t.Structure.Sections)
	if t.Structure.Version == "" {
		t.Structure.Version = defaultStructureVersion
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ArchiveTemplate retires a template version. Archived templates stay
// readable for the notes written against them but are excluded from
// available-for-new-notes listings.
func (s *Service) ArchiveTemplate(ctx context.Context, id uuid.UUID) error {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	t.IsActive = false
	t.IsArchived = true
	return s.repo.Update(ctx, t)
}

// CreateTemplateVersion deep-copies the template's structure into the next
// version of its lineage. The new version becomes the single active member;
// the predecessor is deactivated but not archived, so it remains readable
// and selectable historically.
func (s *Service) CreateTemplateVersion(ctx context.Context, id uuid.UUID) (*TemplateDefinition, error) {
	cur, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	versions, err := s.repo.ListByLineage(ctx, cur.LineageID)
	if err != nil {
		return nil, err
	}
	latest := cur.Version
	for _, v := range versions {
		if v.Version > latest {
			latest = v.Version
		}
	}

	next := &TemplateDefinition{
		Name:        cur.Name,
		Description: cur.Description,
		Category:    cur.Category,
		Version:     latest + 1,
		Structure:   cur.Structure.Clone(),
		IsActive:    true,
		IsArchived:  false,
	}
	if err := s.repo.ReplaceActive(ctx, cur.LineageID, next); err != nil {
		return nil, fmt.Errorf("create version %d: %w", next.Version, err)
	}
	return next, nil
}

func (s *Service) GetTemplate(ctx context.Context, id uuid.UUID) (*TemplateDefinition, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListTemplates(ctx context.Context, filter ListFilter, limit, offset int) ([]*TemplateDefinition, int, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

// ListVersions returns every version in the lineage of the given template,
// oldest first.
func (s *Service) ListVersions(ctx context.Context, id uuid.UUID) ([]*TemplateDefinition, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByLineage(ctx, t.LineageID)
}

// Preview renders the template's form against the given value tree, as the
// note editor would display it.
func (s *Service) Preview(ctx context.Context, id uuid.UUID, tree ValueTree) ([]SectionView, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return RenderForm(t.Structure.Sections, tree), nil
}
