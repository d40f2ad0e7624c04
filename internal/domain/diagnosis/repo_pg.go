package diagnosis

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mentalspace/ehr/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const diagnosisCols = `id, client_id, icd_code, description, diagnosis_type, severity,
	status, diagnosis_date, created_in_note, created_at, updated_at`

func scanDiagnosis(row pgx.Row) (*Diagnosis, error) {
	var d Diagnosis
	err := row.Scan(&d.ID, &d.ClientID, &d.ICDCode, &d.Description, &d.DiagnosisType,
		&d.Severity, &d.Status, &d.DiagnosisDate, &d.CreatedInNote, &d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *repoPG) Create(ctx context.Context, d *Diagnosis) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO diagnosis (id, client_id, icd_code, description, diagnosis_type,
			severity, status, diagnosis_date, created_in_note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		d.ID, d.ClientID, d.ICDCode, d.Description, d.DiagnosisType,
		d.Severity, d.Status, d.DiagnosisDate, d.CreatedInNote)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Diagnosis, error) {
	return scanDiagnosis(r.conn(ctx).QueryRow(ctx,
		`SELECT `+diagnosisCols+` FROM diagnosis WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, d *Diagnosis) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE diagnosis SET icd_code=$2, description=$3, diagnosis_type=$4,
			severity=$5, status=$6, diagnosis_date=$7, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.ICDCode, d.Description, d.DiagnosisType,
		d.Severity, d.Status, d.DiagnosisDate)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM diagnosis WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListByClient(ctx context.Context, clientID uuid.UUID, activeOnly bool) ([]*Diagnosis, error) {
	query := `SELECT ` + diagnosisCols + ` FROM diagnosis WHERE client_id = $1`
	if activeOnly {
		query += ` AND status = 'ACTIVE'`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.conn(ctx).Query(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Diagnosis
	for rows.Next() {
		d, err := scanDiagnosis(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *repoPG) AddHistory(ctx context.Context, h *HistoryEntry) error {
	h.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO diagnosis_history (id, diagnosis_id, changed_by, changed_in_note,
			changed_in_note_type, change_type, old_values, new_values, change_reason)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		h.ID, h.DiagnosisID, h.ChangedBy, h.ChangedInNote,
		h.ChangedInNoteType, h.ChangeType, h.OldValues, h.NewValues, h.ChangeReason)
	return err
}

func (r *repoPG) ListHistory(ctx context.Context, diagnosisID uuid.UUID) ([]*HistoryEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, diagnosis_id, changed_by, changed_in_note, changed_in_note_type,
			change_type, old_values, new_values, change_reason, created_at
		FROM diagnosis_history
		WHERE diagnosis_id = $1
		ORDER BY created_at DESC`, diagnosisID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.ID, &h.DiagnosisID, &h.ChangedBy, &h.ChangedInNote,
			&h.ChangedInNoteType, &h.ChangeType, &h.OldValues, &h.NewValues,
			&h.ChangeReason, &h.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &h)
	}
	return items, rows.Err()
}
