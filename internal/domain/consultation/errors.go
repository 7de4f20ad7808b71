package consultation

import "github.com/telemed/consult/internal/platform/apperr"

var (
	ErrSlotConflict           = apperr.New(apperr.KindConflict, "SLOT_CONFLICT", "doctor already has a consultation at this time")
	ErrPastDateTime           = apperr.New(apperr.KindValidation, "PAST_DATE_TIME", "scheduled time must be in the future")
	ErrConsultationNotFound   = apperr.New(apperr.KindNotFound, "CONSULTATION_NOT_FOUND", "consultation not found")
	ErrConsultationClosed     = apperr.New(apperr.KindState, "CONSULTATION_CLOSED", "consultation is already closed")
	ErrInvalidStatus          = apperr.New(apperr.KindValidation, "INVALID_STATUS", "unknown consultation status")
	ErrInvalidTransition      = apperr.New(apperr.KindState, "INVALID_TRANSITION", "status cannot move backwards")
	ErrTooCloseToCancel       = apperr.New(apperr.KindState, "TOO_CLOSE_TO_CANCEL", "consultation starts too soon to be cancelled")
	ErrConcurrentModification = apperr.New(apperr.KindConflict, "CONCURRENT_MODIFICATION", "consultation was modified concurrently")
)
