package directory

import (
	"context"

	"github.com/google/uuid"
)

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	List(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	UpdateAverageRating(ctx context.Context, id uuid.UUID, rating float64) error
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
}
