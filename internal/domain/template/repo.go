package template

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows template listings. AvailableOnly keeps only templates
// offered for new notes: active and not archived.
type ListFilter struct {
	Category      Category
	AvailableOnly bool
}

type Repository interface {
	Create(ctx context.Context, t *TemplateDefinition) error
	GetByID(ctx context.Context, id uuid.UUID) (*TemplateDefinition, error)
	Update(ctx context.Context, t *TemplateDefinition) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*TemplateDefinition, int, error)
	ListByLineage(ctx context.Context, lineageID uuid.UUID) ([]*TemplateDefinition, error)
	// ReplaceActive atomically deactivates the lineage's current active
	// version and inserts next as the new active one. A lineage has at most
	// one active member at any time; this is the only write that moves the
	// active marker between rows.
	ReplaceActive(ctx context.Context, lineageID uuid.UUID, next *TemplateDefinition) error
}
