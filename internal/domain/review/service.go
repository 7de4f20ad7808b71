package review

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/telemed/consult/internal/domain/consultation"
	"github.com/telemed/consult/internal/platform/apperr"
	"github.com/telemed/consult/internal/platform/auth"
	"github.com/telemed/consult/internal/platform/metrics"
)

const opRatingRecompute = "rating_recompute"

// ConsultationReader loads the consultation a review refers to.
type ConsultationReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*consultation.Consultation, error)
}

type Service struct {
	reviews       Repository
	consultations ConsultationReader
	agg           *Aggregator
	logger        zerolog.Logger
	rec           metrics.Recorder
}

func NewService(reviews Repository, consultations ConsultationReader, agg *Aggregator, logger zerolog.Logger, rec metrics.Recorder) *Service {
	return &Service{
		reviews:       reviews,
		consultations: consultations,
		agg:           agg,
		logger:        logger.With().Str("component", "review").Logger(),
		rec:           rec,
	}
}

func (s *Service) CreateReview(ctx context.Context, actor auth.Actor, consultationID uuid.UUID, score int, comment *string) (*Review, error) {
	if !actor.IsPatient() {
		return nil, apperr.ErrForbidden.Withf("only patients review consultations")
	}
	if !validScore(score) {
		return nil, ErrInvalidScore.Withf("got %d", score)
	}
	c, err := s.consultations.GetByID(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	if c.PatientID != actor.ID {
		return nil, apperr.ErrForbidden.Withf("consultation belongs to another patient")
	}
	if c.Status != consultation.StatusFinished {
		return nil, ErrConsultationNotFinished.Withf("consultation is %s", c.Status)
	}

	_, err = s.reviews.GetByConsultation(ctx, consultationID)
	switch {
	case err == nil:
		return nil, ErrReviewAlreadyExists
	case !errors.Is(err, ErrReviewNotFound):
		return nil, err
	}

	rv := &Review{
		ConsultationID: c.ID,
		PatientID:      actor.ID,
		DoctorID:       c.DoctorID,
		Score:          score,
		Comment:        trimmed(comment),
	}
	if err := s.reviews.Create(ctx, rv); err != nil {
		return nil, err
	}
	s.recompute(ctx, rv.DoctorID)
	return rv, nil
}

// UpdateReview changes the score and/or comment. Only the patient who wrote
// the review may edit it.
func (s *Service) UpdateReview(ctx context.Context, actor auth.Actor, id uuid.UUID, score *int, comment *string) (*Review, error) {
	rv, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsPatient() || rv.PatientID != actor.ID {
		return nil, apperr.ErrForbidden.Withf("only the author may edit a review")
	}
	if score != nil {
		if !validScore(*score) {
			return nil, ErrInvalidScore.Withf("got %d", *score)
		}
		rv.Score = *score
	}
	if comment != nil {
		rv.Comment = trimmed(comment)
	}
	if err := s.reviews.Update(ctx, rv); err != nil {
		return nil, err
	}
	s.recompute(ctx, rv.DoctorID)
	return rv, nil
}

func (s *Service) DeleteReview(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	rv, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && !(actor.IsPatient() && rv.PatientID == actor.ID) {
		return apperr.ErrForbidden.Withf("only the author or an admin may delete a review")
	}
	if err := s.reviews.Delete(ctx, id); err != nil {
		return err
	}
	s.recompute(ctx, rv.DoctorID)
	return nil
}

func (s *Service) ListDoctorReviews(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Review, int, error) {
	return s.reviews.ListByDoctor(ctx, doctorID, limit, offset)
}

// recompute refreshes the doctor's average. A failure leaves the review
// mutation in place and is reported instead.
func (s *Service) recompute(ctx context.Context, doctorID uuid.UUID) {
	if _, err := s.agg.RecomputeAverage(ctx, doctorID); err != nil {
		s.logger.Warn().Err(err).
			Str("operation", opRatingRecompute).
			Str("doctor_id", doctorID.String()).
			Msg("best-effort side effect failed")
		if s.rec != nil {
			s.rec.BestEffortFailure(opRatingRecompute)
		}
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
