package clinical

import (
	"fmt"

	"github.com/telemed/consult/internal/platform/apperr"
)

var (
	ErrNotOwningDoctor           = apperr.New(apperr.KindForbidden, "NOT_OWNING_DOCTOR", "only the consultation's doctor may do this")
	ErrInvalidConsultationState  = apperr.New(apperr.KindState, "INVALID_CONSULTATION_STATE", "consultation must be in progress or finished")
	ErrPrescriptionAlreadyExists = apperr.New(apperr.KindConflict, "PRESCRIPTION_ALREADY_EXISTS", "consultation already has a prescription")
	ErrPrescriptionNotFound      = apperr.New(apperr.KindNotFound, "PRESCRIPTION_NOT_FOUND", "prescription not found")
	ErrPrescriptionInactive      = apperr.New(apperr.KindState, "PRESCRIPTION_INACTIVE", "prescription was cancelled")
	ErrInvalidMedicationEntry    = apperr.New(apperr.KindValidation, "INVALID_MEDICATION_ENTRY", "invalid medication entry")
	ErrHistoryEntryExists        = apperr.New(apperr.KindConflict, "HISTORY_ENTRY_EXISTS", "history entry already exists for this consultation")
	ErrHistoryNotFound           = apperr.New(apperr.KindNotFound, "HISTORY_NOT_FOUND", "medical history entry not found")
	ErrSynchronizationFailed     = apperr.New(apperr.KindConsistency, "SYNCHRONIZATION_FAILED", "clinical records could not be synchronized")
)

// syncFailure classifies a storage error raised at step. Errors that are
// already classified pass through unchanged.
func syncFailure(step string, err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrSynchronizationFailed, step, err)
}
