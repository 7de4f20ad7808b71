package clinical

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/telemed/consult/internal/domain/consultation"
	"github.com/telemed/consult/internal/platform/apperr"
	"github.com/telemed/consult/internal/platform/auth"
)

// FinalizationHistoryNote is written on entries seeded when a consultation
// is finalized without a prescription.
const FinalizationHistoryNote = "Entrada criada automaticamente ao finalizar a consulta."

func (s *Service) CreateHistoryEntry(ctx context.Context, actor auth.Actor, e *HistoryEntry) error {
	if !actor.IsAdmin() && !actor.IsDoctor() {
		return apperr.ErrForbidden.Withf("only doctors write medical history")
	}
	if e.PatientID == uuid.Nil {
		return apperr.ErrInvalidInput.Withf("patient_id is required")
	}
	meds, err := NormalizeMedications(e.Medications)
	if err != nil {
		return err
	}
	e.Medications = meds

	if e.ConsultationID == nil {
		if err := s.checkTreats(ctx, actor, e.PatientID); err != nil {
			return err
		}
	} else {
		c, err := s.consultations.GetByID(ctx, *e.ConsultationID)
		if err != nil {
			return err
		}
		if c.PatientID != e.PatientID {
			return apperr.ErrInvalidInput.Withf("consultation belongs to another patient")
		}
		if actor.IsDoctor() && c.DoctorID != actor.ID {
			return ErrNotOwningDoctor
		}
		_, err = s.history.GetByPatientAndConsultation(ctx, e.PatientID, c.ID)
		switch {
		case err == nil:
			return ErrHistoryEntryExists
		case !errors.Is(err, ErrHistoryNotFound):
			return err
		}
	}
	return s.history.Create(ctx, e)
}

// UpdateHistoryEntry replaces the text fields set in p. Medications and
// attachments in p are appended to the stored ones.
func (s *Service) UpdateHistoryEntry(ctx context.Context, actor auth.Actor, id uuid.UUID, p HistoryPatch) (*HistoryEntry, error) {
	if !actor.IsAdmin() && !actor.IsDoctor() {
		return nil, apperr.ErrForbidden.Withf("only doctors write medical history")
	}
	meds, err := NormalizeMedications(p.Medications)
	if err != nil {
		return nil, err
	}
	p.Medications = meds

	entry, err := s.history.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.ConsultationID == nil {
		if err := s.checkTreats(ctx, actor, entry.PatientID); err != nil {
			return nil, err
		}
	} else if actor.IsDoctor() {
		c, err := s.consultations.GetByID(ctx, *entry.ConsultationID)
		if err != nil {
			return nil, err
		}
		if c.DoctorID != actor.ID {
			return nil, ErrNotOwningDoctor
		}
	}
	return s.history.Update(ctx, id, p)
}

// ListHistory returns a patient's entries. Patients only see their own.
func (s *Service) ListHistory(ctx context.Context, actor auth.Actor, f HistoryFilter, limit, offset int) ([]*HistoryEntry, int, error) {
	if f.PatientID == uuid.Nil {
		return nil, 0, apperr.ErrInvalidInput.Withf("patient_id is required")
	}
	switch {
	case actor.IsPatient() && actor.ID != f.PatientID:
		return nil, 0, apperr.ErrForbidden.Withf("patients may only read their own history")
	case actor.IsDoctor():
		if err := s.checkTreats(ctx, actor, f.PatientID); err != nil {
			return nil, 0, err
		}
	}
	return s.history.Search(ctx, f, limit, offset)
}

// checkTreats lets admins through and requires a doctor to have at least one
// consultation with the patient.
func (s *Service) checkTreats(ctx context.Context, actor auth.Actor, patientID uuid.UUID) error {
	if actor.IsAdmin() {
		return nil
	}
	_, total, err := s.consultations.Search(ctx, consultation.Filter{DoctorID: &actor.ID, PatientID: &patientID}, 1, 0)
	if err != nil {
		return err
	}
	if total == 0 {
		return ErrNotOwningDoctor.Withf("no consultation with this patient")
	}
	return nil
}

func (s *Service) DeleteHistoryEntry(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return apperr.ErrForbidden.Withf("only admins delete medical history")
	}
	if err := s.history.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Warn().
		Str("history_id", id.String()).
		Str("actor_id", actor.ID.String()).
		Msg("medical history entry deleted")
	return nil
}

// HistorySeeder creates the history entry of a consultation when it is
// finalized through the lifecycle.
type HistorySeeder struct {
	history HistoryRepository
}

func NewHistorySeeder(history HistoryRepository) *HistorySeeder {
	return &HistorySeeder{history: history}
}

func (h *HistorySeeder) ConsultationFinalized(ctx context.Context, c *consultation.Consultation) error {
	_, err := h.history.EnsureForConsultation(ctx, c.PatientID, c.ID, FinalizationHistoryNote)
	return err
}
