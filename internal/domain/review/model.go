package review

import (
	"time"

	"github.com/google/uuid"

	"github.com/telemed/consult/internal/platform/apperr"
)

const (
	MinScore = 1
	MaxScore = 5
)

var (
	ErrInvalidScore            = apperr.New(apperr.KindValidation, "INVALID_SCORE", "score must be between 1 and 5")
	ErrConsultationNotFinished = apperr.New(apperr.KindState, "CONSULTATION_NOT_FINISHED", "only finished consultations can be reviewed")
	ErrReviewAlreadyExists     = apperr.New(apperr.KindConflict, "REVIEW_ALREADY_EXISTS", "consultation was already reviewed")
	ErrReviewNotFound          = apperr.New(apperr.KindNotFound, "REVIEW_NOT_FOUND", "review not found")
)

// Review maps to the reviews table.
type Review struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ConsultationID uuid.UUID `db:"consultation_id" json:"consultation_id"`
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID       uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Score          int       `db:"score" json:"score"`
	Comment        *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

func validScore(score int) bool {
	return score >= MinScore && score <= MaxScore
}

// Average is the mean of scores rounded half away from zero to two
// decimals, or 0 when there are no scores. It uses integer arithmetic so
// the result does not depend on the order of the scores.
func Average(scores []int) float64 {
	n := int64(len(scores))
	if n == 0 {
		return 0
	}
	var sum int64
	for _, s := range scores {
		sum += int64(s)
	}
	hundredths := (200*sum + n) / (2 * n)
	return float64(hundredths) / 100
}
