package clinical

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telemed/consult/internal/platform/db"
)

const (
	constraintPrescriptionConsultation = "prescriptions_consultation_key"
	constraintHistoryConsultation      = "medical_history_patient_consultation_key"
)

// =========== Prescription Repository ===========

type prescriptionRepoPG struct{ pool *pgxpool.Pool }

func NewPrescriptionRepoPG(pool *pgxpool.Pool) PrescriptionRepository {
	return &prescriptionRepoPG{pool: pool}
}

func (r *prescriptionRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const prescriptionCols = `id, consultation_id, doctor_id, medications, general_instructions, active, created_at, updated_at`

func (r *prescriptionRepoPG) scanRow(row pgx.Row) (*Prescription, error) {
	var p Prescription
	var raw []byte
	err := row.Scan(&p.ID, &p.ConsultationID, &p.DoctorID, &raw, &p.GeneralInstructions, &p.Active,
		&p.CreatedAt, &p.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrPrescriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.Medications, err = decodeMedications(raw); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	raw, err := encodeMedications(p.Medications)
	if err != nil {
		return err
	}
	p.ID = uuid.New()
	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescriptions (id, consultation_id, doctor_id, medications, general_instructions, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		p.ID, p.ConsultationID, p.DoctorID, raw, p.GeneralInstructions, p.Active,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if db.IsUniqueViolation(err, constraintPrescriptionConsultation) {
		return ErrPrescriptionAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert prescription: %w", err)
	}
	return nil
}

func (r *prescriptionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+prescriptionCols+` FROM prescriptions WHERE id = $1`, id))
}

func (r *prescriptionRepoPG) GetByConsultation(ctx context.Context, consultationID uuid.UUID) (*Prescription, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx,
		`SELECT `+prescriptionCols+` FROM prescriptions WHERE consultation_id = $1`, consultationID))
}

func (r *prescriptionRepoPG) Update(ctx context.Context, p *Prescription) error {
	raw, err := encodeMedications(p.Medications)
	if err != nil {
		return err
	}
	err = r.conn(ctx).QueryRow(ctx, `
		UPDATE prescriptions SET medications = $2, general_instructions = $3, active = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, raw, p.GeneralInstructions, p.Active,
	).Scan(&p.UpdatedAt)
	if db.IsNoRows(err) {
		return ErrPrescriptionNotFound
	}
	return err
}

// =========== History Repository ===========

type historyRepoPG struct{ pool *pgxpool.Pool }

func NewHistoryRepoPG(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepoPG{pool: pool}
}

func (r *historyRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const historyCols = `id, patient_id, consultation_id, diagnosis, treatment, exams, notes, medications,
	attachments, created_at, updated_at`

func (r *historyRepoPG) scanRow(row pgx.Row) (*HistoryEntry, error) {
	var e HistoryEntry
	var raw []byte
	err := row.Scan(&e.ID, &e.PatientID, &e.ConsultationID, &e.Diagnosis, &e.Treatment, &e.Exams, &e.Notes,
		&raw, &e.Attachments, &e.CreatedAt, &e.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrHistoryNotFound
	}
	if err != nil {
		return nil, err
	}
	if e.Medications, err = decodeMedications(raw); err != nil {
		return nil, err
	}
	if e.Attachments == nil {
		e.Attachments = []string{}
	}
	return &e, nil
}

func (r *historyRepoPG) Create(ctx context.Context, e *HistoryEntry) error {
	raw, err := encodeMedications(e.Medications)
	if err != nil {
		return err
	}
	if e.Attachments == nil {
		e.Attachments = []string{}
	}
	e.ID = uuid.New()
	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medical_history (id, patient_id, consultation_id, diagnosis, treatment, exams, notes, medications, attachments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		e.ID, e.PatientID, e.ConsultationID, e.Diagnosis, e.Treatment, e.Exams, e.Notes, raw, e.Attachments,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if db.IsUniqueViolation(err, constraintHistoryConsultation) {
		return ErrHistoryEntryExists
	}
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

func (r *historyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*HistoryEntry, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+historyCols+` FROM medical_history WHERE id = $1`, id))
}

func (r *historyRepoPG) GetByPatientAndConsultation(ctx context.Context, patientID, consultationID uuid.UUID) (*HistoryEntry, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `
		SELECT `+historyCols+` FROM medical_history
		WHERE patient_id = $1 AND consultation_id = $2`, patientID, consultationID))
}

// AppendMedications relies on jsonb array concatenation, which keeps the
// stored items first and in order.
func (r *historyRepoPG) AppendMedications(ctx context.Context, patientID, consultationID uuid.UUID, meds []Medication, note string) (*HistoryEntry, error) {
	raw, err := encodeMedications(meds)
	if err != nil {
		return nil, err
	}
	e, err := r.scanRow(r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medical_history (id, patient_id, consultation_id, medications, notes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (patient_id, consultation_id) DO UPDATE
		SET medications = medical_history.medications || EXCLUDED.medications,
		    updated_at = NOW()
		RETURNING `+historyCols,
		uuid.New(), patientID, consultationID, raw, note))
	if err != nil {
		return nil, fmt.Errorf("append history medications: %w", err)
	}
	return e, nil
}

func (r *historyRepoPG) EnsureForConsultation(ctx context.Context, patientID, consultationID uuid.UUID, note string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medical_history (id, patient_id, consultation_id, notes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (patient_id, consultation_id) DO NOTHING`,
		uuid.New(), patientID, consultationID, note)
	if err != nil {
		return false, fmt.Errorf("seed history entry: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *historyRepoPG) Update(ctx context.Context, id uuid.UUID, p HistoryPatch) (*HistoryEntry, error) {
	raw, err := encodeMedications(p.Medications)
	if err != nil {
		return nil, err
	}
	attachments := p.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `
		UPDATE medical_history SET
			diagnosis = COALESCE($2, diagnosis),
			treatment = COALESCE($3, treatment),
			exams = COALESCE($4, exams),
			notes = COALESCE($5, notes),
			medications = medications || $6::jsonb,
			attachments = attachments || $7::text[],
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+historyCols,
		id, p.Diagnosis, p.Treatment, p.Exams, p.Notes, raw, attachments))
}

func (r *historyRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM medical_history WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrHistoryNotFound
	}
	return nil
}

func (r *historyRepoPG) Search(ctx context.Context, f HistoryFilter, limit, offset int) ([]*HistoryEntry, int, error) {
	var w db.Where
	w.Add("patient_id = ?", f.PatientID)
	if f.ConsultationID != nil {
		w.Add("consultation_id = ?", *f.ConsultationID)
	}
	if f.From != nil {
		w.Add("created_at >= ?", *f.From)
	}
	if f.To != nil {
		w.Add("created_at <= ?", *f.To)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medical_history`+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	page, args := w.Page(limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+historyCols+` FROM medical_history`+w.SQL()+` ORDER BY created_at DESC`+page, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search history: %w", err)
	}
	defer rows.Close()

	var items []*HistoryEntry
	for rows.Next() {
		e, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
