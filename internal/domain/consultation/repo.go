package consultation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts c with the status already set. A clash on the open-slot
	// index returns ErrSlotConflict.
	Create(ctx context.Context, c *Consultation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Consultation, error)
	// FindActiveByDoctorAndTime returns nil, nil when the slot is free.
	FindActiveByDoctorAndTime(ctx context.Context, doctorID uuid.UUID, at time.Time) (*Consultation, error)
	// ListActiveTimesByDoctor returns the instants in [from, to] held by
	// non-terminal consultations.
	ListActiveTimesByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]time.Time, error)
	// UpdateStatus moves the row from one status to another only if it is
	// still in from. A non-empty note is appended to the notes.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, note string) (*Consultation, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, p DetailsPatch) (*Consultation, error)
	Search(ctx context.Context, f Filter, limit, offset int) ([]*Consultation, int, error)
}
