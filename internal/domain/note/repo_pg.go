package note

import (
	"context"
	"errors"
	"fmt"
	"time"

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

const noteCols = `id, client_id, clinician_id, appointment_id, note_type, status,
	session_date, session_start_time, session_end_time, session_duration,
	subjective, objective, assessment, plan,
	suicidal_ideation, suicidal_plan, homicidal_ideation, self_harm,
	risk_level, risk_assessment_details, interventions_taken,
	diagnosis_codes, interventions_used, progress_toward_goals,
	next_session_plan, next_session_date, cpt_code, billable,
	due_date, signed_by, signed_date, cosigned_by, cosigned_date, requires_cosign,
	supervisor_comments, current_revision_comments, current_revision_required_changes,
	revision_history, revision_count, days_to_complete, completed_on_time,
	last_modified_by, is_locked, created_at, updated_at`

func scanNote(row pgx.Row) (*ClinicalNote, error) {
	var n ClinicalNote
	err := row.Scan(
		&n.ID, &n.ClientID, &n.ClinicianID, &n.AppointmentID, &n.NoteType, &n.Status,
		&n.SessionDate, &n.SessionStartTime, &n.SessionEndTime, &n.SessionDuration,
		&n.Subjective, &n.Objective, &n.Assessment, &n.Plan,
		&n.SuicidalIdeation, &n.SuicidalPlan, &n.HomicidalIdeation, &n.SelfHarm,
		&n.RiskLevel, &n.RiskAssessmentDetails, &n.InterventionsTaken,
		&n.DiagnosisCodes, &n.InterventionsUsed, &n.ProgressTowardGoals,
		&n.NextSessionPlan, &n.NextSessionDate, &n.CPTCode, &n.Billable,
		&n.DueDate, &n.SignedBy, &n.SignedDate, &n.CosignedBy, &n.CosignedDate, &n.RequiresCosign,
		&n.SupervisorComments, &n.CurrentRevisionComments, &n.CurrentRevisionRequiredChanges,
		&n.RevisionHistory, &n.RevisionCount, &n.DaysToComplete, &n.CompletedOnTime,
		&n.LastModifiedBy, &n.IsLocked, &n.CreatedAt, &n.UpdatedAt,
	)
	return &n, err
}

func collectNotes(rows pgx.Rows) ([]*ClinicalNote, error) {
	defer rows.Close()
	var items []*ClinicalNote
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, n *ClinicalNote) error {
	n.ID = uuid.New()
	if n.RevisionHistory == nil {
		n.RevisionHistory = []RevisionEntry{}
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinical_note (
			id, client_id, clinician_id, appointment_id, note_type, status,
			session_date, session_start_time, session_end_time, session_duration,
			subjective, objective, assessment, plan,
			suicidal_ideation, suicidal_plan, homicidal_ideation, self_harm,
			risk_level, risk_assessment_details, interventions_taken,
			diagnosis_codes, interventions_used, progress_toward_goals,
			next_session_plan, next_session_date, cpt_code, billable,
			due_date, signed_by, signed_date, cosigned_by, cosigned_date, requires_cosign,
			supervisor_comments, current_revision_comments, current_revision_required_changes,
			revision_history, revision_count, days_to_complete, completed_on_time,
			last_modified_by, is_locked
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,
			$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
			$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,
			$31,$32,$33,$34,$35,$36,$37,$38,$39,$40,
			$41,$42,$43
		)`,
		n.ID, n.ClientID, n.ClinicianID, n.AppointmentID, n.NoteType, n.Status,
		n.SessionDate, n.SessionStartTime, n.SessionEndTime, n.SessionDuration,
		n.Subjective, n.Objective, n.Assessment, n.Plan,
		n.SuicidalIdeation, n.SuicidalPlan, n.HomicidalIdeation, n.SelfHarm,
		n.RiskLevel, n.RiskAssessmentDetails, n.InterventionsTaken,
		n.DiagnosisCodes, n.InterventionsUsed, n.ProgressTowardGoals,
		n.NextSessionPlan, n.NextSessionDate, n.CPTCode, n.Billable,
		n.DueDate, n.SignedBy, n.SignedDate, n.CosignedBy, n.CosignedDate, n.RequiresCosign,
		n.SupervisorComments, n.CurrentRevisionComments, n.CurrentRevisionRequiredChanges,
		n.RevisionHistory, n.RevisionCount, n.DaysToComplete, n.CompletedOnTime,
		n.LastModifiedBy, n.IsLocked,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*ClinicalNote, error) {
	return scanNote(r.conn(ctx).QueryRow(ctx,
		`SELECT `+noteCols+` FROM clinical_note WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, n *ClinicalNote) error {
	if n.RevisionHistory == nil {
		n.RevisionHistory = []RevisionEntry{}
	}
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE clinical_note SET
			appointment_id=$2, note_type=$3, status=$4,
			session_date=$5, session_start_time=$6, session_end_time=$7, session_duration=$8,
			subjective=$9, objective=$10, assessment=$11, plan=$12,
			suicidal_ideation=$13, suicidal_plan=$14, homicidal_ideation=$15, self_harm=$16,
			risk_level=$17, risk_assessment_details=$18, interventions_taken=$19,
			diagnosis_codes=$20, interventions_used=$21, progress_toward_goals=$22,
			next_session_plan=$23, next_session_date=$24, cpt_code=$25, billable=$26,
			due_date=$27, signed_by=$28, signed_date=$29, cosigned_by=$30, cosigned_date=$31,
			requires_cosign=$32, supervisor_comments=$33,
			current_revision_comments=$34, current_revision_required_changes=$35,
			revision_history=$36, revision_count=$37, days_to_complete=$38,
			completed_on_time=$39, last_modified_by=$40, is_locked=$41,
			updated_at=NOW()
		WHERE id = $1`,
		n.ID,
		n.AppointmentID, n.NoteType, n.Status,
		n.SessionDate, n.SessionStartTime, n.SessionEndTime, n.SessionDuration,
		n.Subjective, n.Objective, n.Assessment, n.Plan,
		n.SuicidalIdeation, n.SuicidalPlan, n.HomicidalIdeation, n.SelfHarm,
		n.RiskLevel, n.RiskAssessmentDetails, n.InterventionsTaken,
		n.DiagnosisCodes, n.InterventionsUsed, n.ProgressTowardGoals,
		n.NextSessionPlan, n.NextSessionDate, n.CPTCode, n.Billable,
		n.DueDate, n.SignedBy, n.SignedDate, n.CosignedBy, n.CosignedDate,
		n.RequiresCosign, n.SupervisorComments,
		n.CurrentRevisionComments, n.CurrentRevisionRequiredChanges,
		n.RevisionHistory, n.RevisionCount, n.DaysToComplete,
		n.CompletedOnTime, n.LastModifiedBy, n.IsLocked,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM clinical_note WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, f Filters, clinicianIDs []uuid.UUID, limit, offset int) ([]*ClinicalNote, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if f.ClientID != nil {
		where += fmt.Sprintf(` AND client_id = $%d`, idx)
		args = append(args, *f.ClientID)
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}
	if f.NoteType != "" {
		where += fmt.Sprintf(` AND note_type = $%d`, idx)
		args = append(args, f.NoteType)
		idx++
	}
	if f.StartDate != nil {
		where += fmt.Sprintf(` AND session_date >= $%d`, idx)
		args = append(args, *f.StartDate)
		idx++
	}
	if f.EndDate != nil {
		where += fmt.Sprintf(` AND session_date <= $%d`, idx)
		args = append(args, *f.EndDate)
		idx++
	}
	if len(clinicianIDs) > 0 {
		where += fmt.Sprintf(` AND clinician_id = ANY($%d)`, idx)
		args = append(args, clinicianIDs)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clinical_note`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + noteCols + ` FROM clinical_note` + where +
		fmt.Sprintf(` ORDER BY session_date DESC NULLS LAST, created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectNotes(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repoPG) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*ClinicalNote, error) {
	n, err := scanNote(r.conn(ctx).QueryRow(ctx,
		`SELECT `+noteCols+` FROM clinical_note WHERE appointment_id = $1 LIMIT 1`, appointmentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (r *repoPG) HasCompletedIntake(ctx context.Context, clientID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM clinical_note
			WHERE client_id = $1 AND note_type = $2 AND status = ANY($3)
		)`,
		clientID, TypeIntakeAssessment, []string{StatusSigned, StatusLocked, StatusCosigned}).Scan(&exists)
	return exists, err
}

func (r *repoPG) LatestCompletedTreatmentPlan(ctx context.Context, clientID uuid.UUID) (*ClinicalNote, error) {
	n, err := scanNote(r.conn(ctx).QueryRow(ctx, `
		SELECT `+noteCols+` FROM clinical_note
		WHERE client_id = $1 AND note_type = $2 AND status = ANY($3)
		ORDER BY signed_date DESC NULLS LAST
		LIMIT 1`,
		clientID, TypeTreatmentPlan, []string{StatusSigned, StatusLocked, StatusCosigned}))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (r *repoPG) ListByStatus(ctx context.Context, statuses []string, clinicianIDs []uuid.UUID) ([]*ClinicalNote, error) {
	query := `SELECT ` + noteCols + ` FROM clinical_note WHERE status = ANY($1)`
	args := []interface{}{statuses}
	if len(clinicianIDs) > 0 {
		query += ` AND clinician_id = ANY($2)`
		args = append(args, clinicianIDs)
	}
	query += ` ORDER BY session_date ASC NULLS LAST, created_at ASC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectNotes(rows)
}

func (r *repoPG) ListUnsignedBefore(ctx context.Context, cutoff time.Time, clinicianIDs []uuid.UUID) ([]*ClinicalNote, error) {
	query := `SELECT ` + noteCols + ` FROM clinical_note
		WHERE signed_date IS NULL AND is_locked = false
		AND status = ANY($1) AND session_date < $2`
	args := []interface{}{[]string{StatusDraft, StatusPendingCosign}, cutoff}
	if len(clinicianIDs) > 0 {
		query += ` AND clinician_id = ANY($3)`
		args = append(args, clinicianIDs)
	}
	query += ` ORDER BY session_date ASC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectNotes(rows)
}

func (r *repoPG) AppointmentIDsWithNotes(ctx context.Context, statuses []string) (map[uuid.UUID]bool, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT DISTINCT appointment_id FROM clinical_note
		WHERE appointment_id IS NOT NULL AND status = ANY($1)`, statuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func (r *repoPG) StatsFor(ctx context.Context, clinicianIDs []uuid.UUID, overdueCutoff time.Time) (*Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'DRAFT'),
			COUNT(*) FILTER (WHERE status = 'SIGNED'),
			COUNT(*) FILTER (WHERE status = 'PENDING_COSIGN'),
			COUNT(*) FILTER (WHERE status = 'COSIGNED'),
			COUNT(*) FILTER (WHERE status = 'LOCKED'),
			COUNT(*) FILTER (WHERE signed_date IS NULL AND is_locked = false
				AND status IN ('DRAFT','PENDING_COSIGN') AND session_date < $1)
		FROM clinical_note`
	args := []interface{}{overdueCutoff}
	if len(clinicianIDs) > 0 {
		query += ` WHERE clinician_id = ANY($2)`
		args = append(args, clinicianIDs)
	}

	var s Stats
	err := r.conn(ctx).QueryRow(ctx, query, args...).Scan(
		&s.Total, &s.Draft, &s.Signed, &s.PendingCosign, &s.Cosigned, &s.Locked, &s.Overdue)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
