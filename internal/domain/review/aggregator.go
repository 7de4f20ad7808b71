package review

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/telemed/consult/internal/domain/directory"
)

// Aggregator keeps a doctor's denormalized average rating in line with
// their reviews.
type Aggregator struct {
	reviews Repository
	doctors directory.DoctorRepository
}

func NewAggregator(reviews Repository, doctors directory.DoctorRepository) *Aggregator {
	return &Aggregator{reviews: reviews, doctors: doctors}
}

// RecomputeAverage reads every score of the doctor and overwrites the stored
// average. Running it again, or in any order, yields the same value.
func (a *Aggregator) RecomputeAverage(ctx context.Context, doctorID uuid.UUID) (float64, error) {
	scores, err := a.reviews.ScoresByDoctor(ctx, doctorID)
	if err != nil {
		return 0, fmt.Errorf("recompute average: %w", err)
	}
	avg := Average(scores)
	if err := a.doctors.UpdateAverageRating(ctx, doctorID, avg); err != nil {
		return 0, fmt.Errorf("store average: %w", err)
	}
	return avg, nil
}
