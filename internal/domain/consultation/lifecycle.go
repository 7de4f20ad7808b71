package consultation

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/telemed/consult/internal/platform/apperr"
	"github.com/telemed/consult/internal/platform/auth"
)

const opHistorySeed = "history_seed"

// Transition moves a consultation along agendada -> confirmada ->
// em_andamento -> finalizada. Forward skips are allowed and backward moves
// are rejected. Requesting cancelada goes through Cancel so the
// cancellation window applies.
func (s *Service) Transition(ctx context.Context, actor auth.Actor, id uuid.UUID, requested Status) (*Consultation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case actor.IsPatient():
		if c.PatientID != actor.ID {
			return nil, apperr.ErrForbidden.Withf("patients may only cancel their own consultations")
		}
		if c.Status.Terminal() {
			return nil, ErrConsultationClosed.Withf("consultation is %s", c.Status)
		}
		if requested == StatusCancelled {
			return s.Cancel(ctx, actor, id, nil)
		}
		return nil, apperr.ErrForbidden.Withf("patients may only cancel their own consultations")
	case actor.IsDoctor() && c.DoctorID != actor.ID:
		return nil, apperr.ErrForbidden.Withf("not the consultation's doctor")
	case !actor.IsAdmin() && !actor.IsDoctor():
		return nil, apperr.ErrForbidden
	}

	if err := CheckTransition(c.Status, requested); err != nil {
		return nil, err
	}
	if requested == c.Status {
		return c, nil
	}
	if requested == StatusCancelled {
		return s.Cancel(ctx, actor, id, nil)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, c.Status, requested, "")
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("consultation_id", id.String()).
		Str("from", string(c.Status)).
		Str("to", string(requested)).
		Msg("consultation status changed")

	if requested == StatusFinished {
		s.finalized(ctx, updated)
	}
	return updated, nil
}

func (s *Service) finalized(ctx context.Context, c *Consultation) {
	if s.hook == nil {
		return
	}
	if err := s.hook.ConsultationFinalized(ctx, c); err != nil {
		s.reportBestEffort(opHistorySeed, c.ID, err)
	}
}

// Cancel closes an open consultation. Consultations starting within the
// cancellation window cannot be cancelled; ones already past their start
// can. A non-blank reason is appended to the notes.
func (s *Service) Cancel(ctx context.Context, actor auth.Actor, id uuid.UUID, reason *string) (*Consultation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, c) {
		return nil, apperr.ErrForbidden.Withf("not a participant of this consultation")
	}
	if c.Status.Terminal() {
		return nil, ErrConsultationClosed.Withf("consultation is %s", c.Status)
	}

	now := s.now()
	if now.Before(c.ScheduledAt) && c.ScheduledAt.Sub(now) < s.cfg.CancelWindow {
		return nil, ErrTooCloseToCancel.Withf("cancellations close %s before the start", s.cfg.CancelWindow)
	}

	var note string
	if reason != nil {
		if r := strings.TrimSpace(*reason); r != "" {
			note = "Cancelamento: " + r
		}
	}

	updated, err := s.repo.UpdateStatus(ctx, id, c.Status, StatusCancelled, note)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("consultation_id", id.String()).
		Str("by", string(actor.Role)).
		Msg("consultation cancelled")
	return updated, nil
}

// UpdateDetails edits notes, video link, specialty or value of an open
// consultation. Only the consultation's doctor or an admin may do so.
func (s *Service) UpdateDetails(ctx context.Context, actor auth.Actor, id uuid.UUID, p DetailsPatch) (*Consultation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !(actor.IsDoctor() && c.DoctorID == actor.ID) {
		return nil, apperr.ErrForbidden.Withf("only the consultation's doctor may edit it")
	}
	if c.Status.Terminal() {
		return nil, ErrConsultationClosed.Withf("consultation is %s", c.Status)
	}
	if p.Specialty != nil {
		trimmed := strings.TrimSpace(*p.Specialty)
		if trimmed == "" {
			return nil, apperr.ErrInvalidInput.Withf("specialty must not be blank")
		}
		p.Specialty = &trimmed
	}
	if p.Value != nil && *p.Value < 0 {
		return nil, apperr.ErrInvalidInput.Withf("value must not be negative")
	}
	return s.repo.UpdateDetails(ctx, id, p)
}

// ForceFinalize moves c to finalizada under the lifecycle guards without
// firing the finalization hook. It is meant to run inside a caller's
// transaction that already holds the row lock.
func (s *Service) ForceFinalize(ctx context.Context, c *Consultation) (*Consultation, error) {
	if err := CheckTransition(c.Status, StatusFinished); err != nil {
		return nil, err
	}
	return s.repo.UpdateStatus(ctx, c.ID, c.Status, StatusFinished, "")
}
