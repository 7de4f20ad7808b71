package consultation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/telemed/consult/internal/domain/directory"
	"github.com/telemed/consult/internal/platform/apperr"
	"github.com/telemed/consult/internal/platform/auth"
	"github.com/telemed/consult/internal/platform/metrics"
)

// Config holds the scheduling rules taken from the process configuration.
type Config struct {
	CancelWindow  time.Duration
	SlotFirstHour int
	SlotLastHour  int
}

// FinalizationHook is notified after a transition first enters finalizada.
// Its failure is reported but never undoes the transition.
type FinalizationHook interface {
	ConsultationFinalized(ctx context.Context, c *Consultation) error
}

type Service struct {
	repo    Repository
	doctors directory.DoctorRepository
	hook    FinalizationHook
	cfg     Config
	logger  zerolog.Logger
	rec     metrics.Recorder
	now     func() time.Time
}

func NewService(repo Repository, doctors directory.DoctorRepository, cfg Config, logger zerolog.Logger, rec metrics.Recorder) *Service {
	return &Service{
		repo:    repo,
		doctors: doctors,
		cfg:     cfg,
		logger:  logger.With().Str("component", "consultation").Logger(),
		rec:     rec,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetFinalizationHook attaches the hook fired when a consultation is
// finalized through Transition.
func (s *Service) SetFinalizationHook(h FinalizationHook) {
	s.hook = h
}

func (s *Service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Consultation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, c) {
		return nil, apperr.ErrForbidden.Withf("not a participant of this consultation")
	}
	return c, nil
}

// List narrows the filter to the actor's own consultations unless the actor
// is an admin.
func (s *Service) List(ctx context.Context, actor auth.Actor, f Filter, limit, offset int) ([]*Consultation, int, error) {
	if f.Status != nil && !f.Status.Valid() {
		return nil, 0, ErrInvalidStatus.Withf("%q", *f.Status)
	}
	switch {
	case actor.IsPatient():
		id := actor.ID
		f.PatientID = &id
	case actor.IsDoctor():
		id := actor.ID
		f.DoctorID = &id
	}
	return s.repo.Search(ctx, f, limit, offset)
}

func canView(actor auth.Actor, c *Consultation) bool {
	switch {
	case actor.IsAdmin():
		return true
	case actor.IsDoctor():
		return c.DoctorID == actor.ID
	case actor.IsPatient():
		return c.PatientID == actor.ID
	}
	return false
}

// reportBestEffort logs and counts a side effect that failed after its
// triggering operation already succeeded.
func (s *Service) reportBestEffort(op string, id uuid.UUID, err error) {
	s.logger.Warn().Err(err).
		Str("operation", op).
		Str("consultation_id", id.String()).
		Msg("best-effort side effect failed")
	if s.rec != nil {
		s.rec.BestEffortFailure(op)
	}
}
