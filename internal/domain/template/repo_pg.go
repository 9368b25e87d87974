package template

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/clinicdesk/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const templateCols = `id, lineage_id, name, description, category, version,
	structure, is_active, is_archived, created_at, updated_at`

func (r *repoPG) scanTemplate(row pgx.Row) (*TemplateDefinition, error) {
	var t TemplateDefinition
	err := row.Scan(&t.ID, &t.LineageID, &t.Name, &t.Description, &t.Category, &t.Version,
		&t.Structure, &t.IsActive, &t.IsArchived, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTemplateNotFound
	}
	return &t, err
}

func (r *repoPG) Create(ctx context.Context, t *TemplateDefinition) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.LineageID == uuid.Nil {
		t.LineageID = t.ID
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO note_template (id, lineage_id, name, description, category, version,
			structure, is_active, is_archived)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		t.ID, t.LineageID, t.Name, t.Description, t.Category, t.Version,
		t.Structure, t.IsActive, t.IsArchived)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*TemplateDefinition, error) {
	return r.scanTemplate(r.conn(ctx).QueryRow(ctx,
		`SELECT `+templateCols+` FROM note_template WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, t *TemplateDefinition) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE note_template SET name=$2, description=$3, category=$4,
			structure=$5, is_active=$6, is_archived=$7, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Name, t.Description, t.Category,
		t.Structure, t.IsActive, t.IsArchived)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*TemplateDefinition, int, error) {
	where := `WHERE 1=1`
	args := []interface{}{}
	if filter.AvailableOnly {
		where += ` AND is_active = TRUE AND is_archived = FALSE`
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where += fmt.Sprintf(` AND category = $%d`, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM note_template `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+templateCols+` FROM note_template `+where+
			fmt.Sprintf(` ORDER BY name, version DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*TemplateDefinition
	for rows.Next() {
		t, err := r.scanTemplate(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListByLineage(ctx context.Context, lineageID uuid.UUID) ([]*TemplateDefinition, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+templateCols+` FROM note_template WHERE lineage_id = $1 ORDER BY version`, lineageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*TemplateDefinition
	for rows.Next() {
		t, err := r.scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (r *repoPG) ReplaceActive(ctx context.Context, lineageID uuid.UUID, next *TemplateDefinition) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		if _, err := r.conn(ctx).Exec(ctx, `
			UPDATE note_template SET is_active = FALSE, updated_at = NOW()
			WHERE lineage_id = $1 AND is_active = TRUE`, lineageID); err != nil {
			return fmt.Errorf("deactivate current version: %w", err)
		}
		next.LineageID = lineageID
		if err := r.Create(ctx, next); err != nil {
			return fmt.Errorf("insert new version: %w", err)
		}
		return nil
	})
}
