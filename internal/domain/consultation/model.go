package consultation

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a consultation.
type Status string

const (
	StatusScheduled  Status = "agendada"
	StatusConfirmed  Status = "confirmada"
	StatusInProgress Status = "em_andamento"
	StatusFinished   Status = "finalizada"
	StatusCancelled  Status = "cancelada"
)

// rank orders the forward path. cancelada sits outside the order.
var rank = map[Status]int{
	StatusScheduled:  0,
	StatusConfirmed:  1,
	StatusInProgress: 2,
	StatusFinished:   3,
}

func (s Status) Valid() bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := rank[s]
	return ok
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

// CheckTransition applies the lifecycle guards to a move from one status to
// another. A nil error with from == to means the request is a no-op.
func CheckTransition(from, to Status) error {
	if from.Terminal() {
		return ErrConsultationClosed.Withf("consultation is %s", from)
	}
	if !to.Valid() {
		return ErrInvalidStatus.Withf("%q", to)
	}
	if to == StatusCancelled {
		return nil
	}
	if rank[to] < rank[from] {
		return ErrInvalidTransition.Withf("%s -> %s", from, to)
	}
	return nil
}

// Consultation maps to the consultations table.
type Consultation struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID    uuid.UUID `db:"doctor_id" json:"doctor_id"`
	ScheduledAt time.Time `db:"scheduled_at" json:"scheduled_at"`
	Specialty   string    `db:"specialty" json:"specialty"`
	Notes       *string   `db:"notes" json:"notes,omitempty"`
	VideoLink   *string   `db:"video_link" json:"video_link,omitempty"`
	Value       *float64  `db:"value" json:"value,omitempty"`
	Status      Status    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// BookingRequest is the input of Book.
type BookingRequest struct {
	DoctorID    uuid.UUID `json:"doctor_id"`
	PatientID   uuid.UUID `json:"patient_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Specialty   string    `json:"specialty"`
	Notes       *string   `json:"notes,omitempty"`
	Value       *float64  `json:"value,omitempty"`
}

// DetailsPatch carries the non-status fields that stay editable while the
// consultation is open. Nil fields are left untouched.
type DetailsPatch struct {
	Notes     *string  `json:"notes,omitempty"`
	VideoLink *string  `json:"video_link,omitempty"`
	Specialty *string  `json:"specialty,omitempty"`
	Value     *float64 `json:"value,omitempty"`
}

type Filter struct {
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
	Status    *Status
	From      *time.Time
	To        *time.Time
}
