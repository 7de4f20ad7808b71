package review

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telemed/consult/internal/platform/db"
)

const constraintReviewConsultation = "reviews_consultation_key"

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const cols = `id, consultation_id, patient_id, doctor_id, score, comment, created_at, updated_at`

func (r *repoPG) scanRow(row pgx.Row) (*Review, error) {
	var rv Review
	var score int16
	err := row.Scan(&rv.ID, &rv.ConsultationID, &rv.PatientID, &rv.DoctorID, &score, &rv.Comment,
		&rv.CreatedAt, &rv.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, err
	}
	rv.Score = int(score)
	return &rv, nil
}

func (r *repoPG) Create(ctx context.Context, rv *Review) error {
	rv.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO reviews (id, consultation_id, patient_id, doctor_id, score, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		rv.ID, rv.ConsultationID, rv.PatientID, rv.DoctorID, int16(rv.Score), rv.Comment,
	).Scan(&rv.CreatedAt, &rv.UpdatedAt)
	if db.IsUniqueViolation(err, constraintReviewConsultation) {
		return ErrReviewAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM reviews WHERE id = $1`, id))
}

func (r *repoPG) GetByConsultation(ctx context.Context, consultationID uuid.UUID) (*Review, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM reviews WHERE consultation_id = $1`, consultationID))
}

func (r *repoPG) Update(ctx context.Context, rv *Review) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE reviews SET score = $2, comment = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		rv.ID, int16(rv.Score), rv.Comment,
	).Scan(&rv.UpdatedAt)
	if db.IsNoRows(err) {
		return ErrReviewNotFound
	}
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReviewNotFound
	}
	return nil
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Review, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM reviews WHERE doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+cols+` FROM reviews WHERE doctor_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, doctorID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var items []*Review
	for rows.Next() {
		rv, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rv)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ScoresByDoctor(ctx context.Context, doctorID uuid.UUID) ([]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT score FROM reviews WHERE doctor_id = $1`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}
	defer rows.Close()

	var scores []int
	for rows.Next() {
		var s int16
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		scores = append(scores, int(s))
	}
	return scores, rows.Err()
}
