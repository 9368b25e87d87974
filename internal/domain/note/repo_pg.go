package note

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/clinicdesk/internal/domain/template"
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

const noteCols = `id, template_id, patient_id, practitioner_id, content,
	is_draft, is_signed, signed_at, last_autosave_at, created_at, updated_at`

func (r *repoPG) scanNote(row pgx.Row) (*NoteDocument, error) {
	var n NoteDocument
	err := row.Scan(&n.ID, &n.TemplateID, &n.PatientID, &n.PractitionerID, &n.Content,
		&n.IsDraft, &n.IsSigned, &n.SignedAt, &n.LastAutosaveAt, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoteNotFound
	}
	return &n, err
}

func (r *repoPG) Create(ctx context.Context, n *NoteDocument) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinical_note (id, template_id, patient_id, practitioner_id,
			content, is_draft, is_signed)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		n.ID, n.TemplateID, n.PatientID, n.PractitionerID,
		n.Content, n.IsDraft, n.IsSigned)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*NoteDocument, error) {
	return r.scanNote(r.conn(ctx).QueryRow(ctx,
		`SELECT `+noteCols+` FROM clinical_note WHERE id = $1`, id))
}

// UpdateContent writes only when the row is still unsigned; the guard in the
// WHERE clause is what makes a sign followed by a late save safe at the
// storage boundary.
func (r *repoPG) UpdateContent(ctx context.Context, id uuid.UUID, content template.ValueTree, autosavedAt *time.Time) (*NoteDocument, error) {
	n, err := r.scanNote(r.conn(ctx).QueryRow(ctx, `
		UPDATE clinical_note
		SET content = $2,
			last_autosave_at = COALESCE($3, last_autosave_at),
			updated_at = NOW()
		WHERE id = $1 AND is_signed = FALSE
		RETURNING `+noteCols, id, content, autosavedAt))
	if errors.Is(err, ErrNoteNotFound) {
		return nil, r.classifyMissing(ctx, id)
	}
	return n, err
}

func (r *repoPG) Sign(ctx context.Context, id uuid.UUID, content template.ValueTree, signedAt time.Time) (*NoteDocument, error) {
	n, err := r.scanNote(r.conn(ctx).QueryRow(ctx, `
		UPDATE clinical_note
		SET content = $2,
			is_signed = TRUE,
			is_draft = FALSE,
			signed_at = $3,
			updated_at = NOW()
		WHERE id = $1 AND is_signed = FALSE
		RETURNING `+noteCols, id, content, signedAt))
	if errors.Is(err, ErrNoteNotFound) {
		return nil, r.classifyMissing(ctx, id)
	}
	return n, err
}

// classifyMissing distinguishes "row does not exist" from "row exists but is
// signed" after a guarded update matched nothing.
func (r *repoPG) classifyMissing(ctx context.Context, id uuid.UUID) error {
	var signed bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT is_signed FROM clinical_note WHERE id = $1`, id).Scan(&signed)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoteNotFound
	}
	if err != nil {
		return err
	}
	if signed {
		return ErrImmutableDocument
	}
	return ErrNoteNotFound
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*NoteDocument, int, error) {
	return r.list(ctx, `patient_id`, patientID, limit, offset)
}

func (r *repoPG) ListByPractitioner(ctx context.Context, practitionerID uuid.UUID, limit, offset int) ([]*NoteDocument, int, error) {
	return r.list(ctx, `practitioner_id`, practitionerID, limit, offset)
}

func (r *repoPG) list(ctx context.Context, col string, id uuid.UUID, limit, offset int) ([]*NoteDocument, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM clinical_note WHERE `+col+` = $1`, id).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+noteCols+` FROM clinical_note WHERE `+col+` = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, id, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*NoteDocument
	for rows.Next() {
		n, err := r.scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}
