package consultation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telemed/consult/internal/domain/directory"
	"github.com/telemed/consult/internal/platform/db"
)

const (
	constraintOpenSlot = "consultations_doctor_slot_active"
	constraintPatient  = "consultations_patient_id_fkey"
	constraintDoctor   = "consultations_doctor_id_fkey"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const cols = `id, patient_id, doctor_id, scheduled_at, specialty, notes, video_link, value::float8,
	status, created_at, updated_at`

func (r *repoPG) scanRow(row pgx.Row) (*Consultation, error) {
	var c Consultation
	var status string
	err := row.Scan(&c.ID, &c.PatientID, &c.DoctorID, &c.ScheduledAt, &c.Specialty, &c.Notes,
		&c.VideoLink, &c.Value, &status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Status = Status(status)
	c.ScheduledAt = c.ScheduledAt.UTC()
	return &c, nil
}

func (r *repoPG) Create(ctx context.Context, c *Consultation) error {
	c.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO consultations (id, patient_id, doctor_id, scheduled_at, specialty, notes, video_link, value, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		c.ID, c.PatientID, c.DoctorID, c.ScheduledAt, c.Specialty, c.Notes, c.VideoLink, c.Value, string(c.Status),
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, constraintOpenSlot):
		return ErrSlotConflict
	case db.IsForeignKeyViolation(err, constraintPatient):
		return directory.ErrPatientNotFound
	case db.IsForeignKeyViolation(err, constraintDoctor):
		return directory.ErrDoctorNotFound
	default:
		return fmt.Errorf("insert consultation: %w", err)
	}
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	c, err := r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM consultations WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrConsultationNotFound
	}
	return c, err
}

func (r *repoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	c, err := r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM consultations WHERE id = $1 FOR UPDATE`, id))
	if db.IsNoRows(err) {
		return nil, ErrConsultationNotFound
	}
	return c, err
}

func (r *repoPG) FindActiveByDoctorAndTime(ctx context.Context, doctorID uuid.UUID, at time.Time) (*Consultation, error) {
	c, err := r.scanRow(r.conn(ctx).QueryRow(ctx, `
		SELECT `+cols+` FROM consultations
		WHERE doctor_id = $1 AND scheduled_at = $2 AND status NOT IN ('cancelada', 'finalizada')
		LIMIT 1`, doctorID, at))
	if db.IsNoRows(err) {
		return nil, nil
	}
	return c, err
}

func (r *repoPG) ListActiveTimesByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]time.Time, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT scheduled_at FROM consultations
		WHERE doctor_id = $1 AND scheduled_at BETWEEN $2 AND $3
		  AND status NOT IN ('cancelada', 'finalizada')
		ORDER BY scheduled_at`, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list taken slots: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t.UTC())
	}
	return out, rows.Err()
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, note string) (*Consultation, error) {
	c, err := r.scanRow(r.conn(ctx).QueryRow(ctx, `
		UPDATE consultations SET
			status = $3,
			notes = CASE
				WHEN $4::text = '' THEN notes
				WHEN notes IS NULL OR notes = '' THEN $4::text
				ELSE notes || E'\n' || $4::text
			END,
			updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING `+cols, id, string(from), string(to), note))
	if db.IsNoRows(err) {
		return nil, ErrConcurrentModification.Withf("expected status %s", from)
	}
	if db.IsUniqueViolation(err, constraintOpenSlot) {
		return nil, ErrSlotConflict
	}
	return c, err
}

func (r *repoPG) UpdateDetails(ctx context.Context, id uuid.UUID, p DetailsPatch) (*Consultation, error) {
	c, err := r.scanRow(r.conn(ctx).QueryRow(ctx, `
		UPDATE consultations SET
			notes = COALESCE($2, notes),
			video_link = COALESCE($3, video_link),
			specialty = COALESCE($4, specialty),
			value = COALESCE($5, value),
			updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('cancelada', 'finalizada')
		RETURNING `+cols, id, p.Notes, p.VideoLink, p.Specialty, p.Value))
	if db.IsNoRows(err) {
		return nil, ErrConsultationClosed
	}
	return c, err
}

func (r *repoPG) Search(ctx context.Context, f Filter, limit, offset int) ([]*Consultation, int, error) {
	var w db.Where
	if f.DoctorID != nil {
		w.Add("doctor_id = ?", *f.DoctorID)
	}
	if f.PatientID != nil {
		w.Add("patient_id = ?", *f.PatientID)
	}
	if f.Status != nil {
		w.Add("status = ?", string(*f.Status))
	}
	if f.From != nil {
		w.Add("scheduled_at >= ?", *f.From)
	}
	if f.To != nil {
		w.Add("scheduled_at <= ?", *f.To)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM consultations`+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count consultations: %w", err)
	}

	page, args := w.Page(limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+cols+` FROM consultations`+w.SQL()+` ORDER BY scheduled_at DESC`+page, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search consultations: %w", err)
	}
	defer rows.Close()

	var items []*Consultation
	for rows.Next() {
		c, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}
