package signature

import (
	"context"
	"errors"

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

// =========== Signature Event Repository ===========

type eventRepoPG struct{ pool *pgxpool.Pool }

func NewEventRepoPG(pool *pgxpool.Pool) EventRepository {
	return &eventRepoPG{pool: pool}
}

func (r *eventRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const eventCols = `id, note_id, user_id, signature_type, auth_method, attestation_id,
	ip_address, user_agent, is_valid, revoked_at, revoked_by, revoked_reason, signed_at`

func (r *eventRepoPG) scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.NoteID, &e.UserID, &e.SignatureType, &e.AuthMethod, &e.AttestationID,
		&e.IPAddress, &e.UserAgent, &e.IsValid, &e.RevokedAt, &e.RevokedBy, &e.RevokedReason, &e.SignedAt)
	return &e, err
}

func (r *eventRepoPG) Create(ctx context.Context, e *Event) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO signature_event (id, note_id, user_id, signature_type, auth_method,
			attestation_id, ip_address, user_agent, is_valid)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		e.ID, e.NoteID, e.UserID, e.SignatureType, e.AuthMethod,
		e.AttestationID, e.IPAddress, e.UserAgent, e.IsValid)
	return err
}

func (r *eventRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	return r.scanEvent(r.conn(ctx).QueryRow(ctx, `SELECT `+eventCols+` FROM signature_event WHERE id = $1`, id))
}

func (r *eventRepoPG) ListByNote(ctx context.Context, noteID uuid.UUID) ([]*Event, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+eventCols+` FROM signature_event WHERE note_id = $1 ORDER BY signed_at DESC`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Event
	for rows.Next() {
		e, err := r.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// Revoke updates only the revocation fields. The row itself is never deleted.
func (r *eventRepoPG) Revoke(ctx context.Context, e *Event) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE signature_event SET is_valid=false, revoked_at=$2, revoked_by=$3, revoked_reason=$4
		WHERE id = $1`,
		e.ID, e.RevokedAt, e.RevokedBy, e.RevokedReason)
	return err
}

// =========== Attestation Repository ===========

type attestationRepoPG struct{ pool *pgxpool.Pool }

func NewAttestationRepoPG(pool *pgxpool.Pool) AttestationRepository {
	return &attestationRepoPG{pool: pool}
}

func (r *attestationRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const attestationCols = `id, role, note_type, jurisdiction, attestation_text,
	is_active, effective_date, created_at`

func (r *attestationRepoPG) Create(ctx context.Context, a *Attestation) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO signature_attestation (id, role, note_type, jurisdiction,
			attestation_text, is_active, effective_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.Role, a.NoteType, a.Jurisdiction,
		a.AttestationText, a.IsActive, a.EffectiveDate)
	return err
}

func (r *attestationRepoPG) FindActive(ctx context.Context, role, noteType, jurisdiction string) (*Attestation, error) {
	var a Attestation
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT `+attestationCols+` FROM signature_attestation
		WHERE role = $1 AND note_type = $2 AND jurisdiction = $3
			AND is_active AND effective_date <= NOW()
		ORDER BY effective_date DESC
		LIMIT 1`,
		role, noteType, jurisdiction).
		Scan(&a.ID, &a.Role, &a.NoteType, &a.Jurisdiction, &a.AttestationText,
			&a.IsActive, &a.EffectiveDate, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
