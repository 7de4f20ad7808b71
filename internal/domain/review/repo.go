package review

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create returns ErrReviewAlreadyExists when the consultation already
	// has a review.
	Create(ctx context.Context, r *Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*Review, error)
	GetByConsultation(ctx context.Context, consultationID uuid.UUID) (*Review, error)
	Update(ctx context.Context, r *Review) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Review, int, error)
	ScoresByDoctor(ctx context.Context, doctorID uuid.UUID) ([]int, error)
}
