package clinical

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/telemed/consult/internal/platform/apperr"
	"github.com/telemed/consult/internal/platform/auth"
)

// GetPrescriptionByConsultation is open to the consultation's doctor and
// patient, and to admins.
func (s *Service) GetPrescriptionByConsultation(ctx context.Context, actor auth.Actor, consultationID uuid.UUID) (*Prescription, error) {
	c, err := s.consultations.GetByID(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	switch {
	case actor.IsAdmin():
	case actor.IsDoctor() && c.DoctorID == actor.ID:
	case actor.IsPatient() && c.PatientID == actor.ID:
	default:
		return nil, apperr.ErrForbidden.Withf("not a participant of this consultation")
	}
	return s.prescriptions.GetByConsultation(ctx, consultationID)
}

func (s *Service) ownedPrescription(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Prescription, error) {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsDoctor() || p.DoctorID != actor.ID {
		return nil, ErrNotOwningDoctor
	}
	return p, nil
}

// UpdatePrescription replaces the medications and instructions of an active
// prescription. History entries keep what was appended at issuance.
func (s *Service) UpdatePrescription(ctx context.Context, actor auth.Actor, id uuid.UUID, patch PrescriptionPatch) (*Prescription, error) {
	p, err := s.ownedPrescription(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, ErrPrescriptionInactive
	}
	if patch.Medications != nil {
		if len(patch.Medications) == 0 {
			return nil, ErrInvalidMedicationEntry.Withf("at least one medication is required")
		}
		meds, err := NormalizeMedications(patch.Medications)
		if err != nil {
			return nil, err
		}
		p.Medications = meds
	}
	if patch.GeneralInstructions != nil {
		p.GeneralInstructions = strings.TrimSpace(*patch.GeneralInstructions)
	}
	if err := s.prescriptions.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CancelPrescription deactivates the prescription. Cancelling twice is not
// an error.
func (s *Service) CancelPrescription(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Prescription, error) {
	p, err := s.ownedPrescription(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return p, nil
	}
	p.Active = false
	if err := s.prescriptions.Update(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info().Str("prescription_id", id.String()).Msg("prescription cancelled")
	return p, nil
}
