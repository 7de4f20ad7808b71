package clinical

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/telemed/consult/internal/domain/consultation"
	"github.com/telemed/consult/internal/platform/apperr"
	"github.com/telemed/consult/internal/platform/auth"
	"github.com/telemed/consult/internal/platform/db"
)

// PrescriptionHistoryNote is written on history entries created by a
// prescription.
const PrescriptionHistoryNote = "Entrada criada automaticamente a partir da prescrição."

// ConsultationStore is the read side of the consultation repository.
type ConsultationStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*consultation.Consultation, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*consultation.Consultation, error)
	Search(ctx context.Context, f consultation.Filter, limit, offset int) ([]*consultation.Consultation, int, error)
}

// Finalizer closes a consultation under the lifecycle guards.
type Finalizer interface {
	ForceFinalize(ctx context.Context, c *consultation.Consultation) (*consultation.Consultation, error)
}

type Service struct {
	consultations ConsultationStore
	finalizer     Finalizer
	prescriptions PrescriptionRepository
	history       HistoryRepository
	tx            db.TxRunner
	logger        zerolog.Logger
}

func NewService(
	consultations ConsultationStore,
	finalizer Finalizer,
	prescriptions PrescriptionRepository,
	history HistoryRepository,
	tx db.TxRunner,
	logger zerolog.Logger,
) *Service {
	return &Service{
		consultations: consultations,
		finalizer:     finalizer,
		prescriptions: prescriptions,
		history:       history,
		tx:            tx,
		logger:        logger.With().Str("component", "clinical").Logger(),
	}
}

// IssuePrescription records a prescription for a consultation that is in
// progress or finished, finalizes the consultation if needed and appends
// the medications to the patient's history entry for that consultation.
// The three writes commit together or not at all.
func (s *Service) IssuePrescription(ctx context.Context, actor auth.Actor, req IssueRequest) (*Prescription, error) {
	if req.ConsultationID == uuid.Nil {
		return nil, apperr.ErrInvalidInput.Withf("consultation_id is required")
	}
	if len(req.Medications) == 0 {
		return nil, ErrInvalidMedicationEntry.Withf("at least one medication is required")
	}
	meds, err := NormalizeMedications(req.Medications)
	if err != nil {
		return nil, err
	}
	if !actor.IsDoctor() {
		return nil, ErrNotOwningDoctor
	}

	var out *Prescription
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		c, err := s.consultations.GetForUpdate(ctx, req.ConsultationID)
		if err != nil {
			return syncFailure("lock consultation", err)
		}
		if c.DoctorID != actor.ID {
			return ErrNotOwningDoctor
		}
		if c.Status != consultation.StatusInProgress && c.Status != consultation.StatusFinished {
			return ErrInvalidConsultationState.Withf("consultation is %s", c.Status)
		}

		_, err = s.prescriptions.GetByConsultation(ctx, c.ID)
		switch {
		case err == nil:
			return ErrPrescriptionAlreadyExists
		case !errors.Is(err, ErrPrescriptionNotFound):
			return syncFailure("load prescription", err)
		}

		p := &Prescription{
			ConsultationID:      c.ID,
			DoctorID:            actor.ID,
			Medications:         meds,
			GeneralInstructions: strings.TrimSpace(req.GeneralInstructions),
			Active:              true,
		}
		if err := s.prescriptions.Create(ctx, p); err != nil {
			return syncFailure("insert prescription", err)
		}

		if c.Status != consultation.StatusFinished {
			if _, err := s.finalizer.ForceFinalize(ctx, c); err != nil {
				return syncFailure("finalize consultation", err)
			}
		}

		if _, err := s.history.AppendMedications(ctx, c.PatientID, c.ID, meds, PrescriptionHistoryNote); err != nil {
			return syncFailure("append history", err)
		}
		out = p
		return nil
	})
	if err != nil {
		err = syncFailure("commit", err)
		if apperr.KindOf(err) == apperr.KindConsistency {
			s.logger.Error().Err(err).
				Str("consultation_id", req.ConsultationID.String()).
				Msg("prescription issuance rolled back")
		}
		return nil, err
	}

	s.logger.Info().
		Str("prescription_id", out.ID.String()).
		Str("consultation_id", out.ConsultationID.String()).
		Int("medications", len(out.Medications)).
		Msg("prescription issued")
	return out, nil
}
