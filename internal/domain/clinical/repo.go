package clinical

import (
	"context"

	"github.com/google/uuid"
)

type PrescriptionRepository interface {
	// Create returns ErrPrescriptionAlreadyExists when the consultation
	// already has one.
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	GetByConsultation(ctx context.Context, consultationID uuid.UUID) (*Prescription, error)
	Update(ctx context.Context, p *Prescription) error
}

type HistoryRepository interface {
	Create(ctx context.Context, e *HistoryEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*HistoryEntry, error)
	GetByPatientAndConsultation(ctx context.Context, patientID, consultationID uuid.UUID) (*HistoryEntry, error)
	// AppendMedications adds meds after the medications already on the
	// (patient, consultation) entry, creating the entry with note when it
	// does not exist.
	AppendMedications(ctx context.Context, patientID, consultationID uuid.UUID, meds []Medication, note string) (*HistoryEntry, error)
	// EnsureForConsultation creates an empty entry unless one exists.
	EnsureForConsultation(ctx context.Context, patientID, consultationID uuid.UUID, note string) (bool, error)
	Update(ctx context.Context, id uuid.UUID, p HistoryPatch) (*HistoryEntry, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, f HistoryFilter, limit, offset int) ([]*HistoryEntry, int, error)
}
