package clinical

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Medication is one line of a prescription or history entry.
type Medication struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions"`
}

// NormalizeMedications trims every field and checks that name, dosage,
// frequency and duration are present. The returned slice is a copy.
func NormalizeMedications(in []Medication) ([]Medication, error) {
	out := make([]Medication, len(in))
	for i, m := range in {
		m.Name = strings.TrimSpace(m.Name)
		m.Dosage = strings.TrimSpace(m.Dosage)
		m.Frequency = strings.TrimSpace(m.Frequency)
		m.Duration = strings.TrimSpace(m.Duration)
		m.Instructions = strings.TrimSpace(m.Instructions)
		for _, f := range []struct{ name, value string }{
			{"name", m.Name},
			{"dosage", m.Dosage},
			{"frequency", m.Frequency},
			{"duration", m.Duration},
		} {
			if f.value == "" {
				return nil, ErrInvalidMedicationEntry.Withf("medications[%d].%s is required", i, f.name)
			}
		}
		out[i] = m
	}
	return out, nil
}

func encodeMedications(meds []Medication) ([]byte, error) {
	if meds == nil {
		meds = []Medication{}
	}
	b, err := json.Marshal(meds)
	if err != nil {
		return nil, fmt.Errorf("encode medications: %w", err)
	}
	return b, nil
}

func decodeMedications(raw []byte) ([]Medication, error) {
	meds := []Medication{}
	if len(raw) == 0 {
		return meds, nil
	}
	if err := json.Unmarshal(raw, &meds); err != nil {
		return nil, fmt.Errorf("decode medications: %w", err)
	}
	return meds, nil
}

// Prescription maps to the prescriptions table.
type Prescription struct {
	ID                  uuid.UUID    `db:"id" json:"id"`
	ConsultationID      uuid.UUID    `db:"consultation_id" json:"consultation_id"`
	DoctorID            uuid.UUID    `db:"doctor_id" json:"doctor_id"`
	Medications         []Medication `db:"medications" json:"medications"`
	GeneralInstructions string       `db:"general_instructions" json:"general_instructions"`
	Active              bool         `db:"active" json:"active"`
	CreatedAt           time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time    `db:"updated_at" json:"updated_at"`
}

// HistoryEntry maps to the medical_history table.
type HistoryEntry struct {
	ID             uuid.UUID    `db:"id" json:"id"`
	PatientID      uuid.UUID    `db:"patient_id" json:"patient_id"`
	ConsultationID *uuid.UUID   `db:"consultation_id" json:"consultation_id,omitempty"`
	Diagnosis      *string      `db:"diagnosis" json:"diagnosis,omitempty"`
	Treatment      *string      `db:"treatment" json:"treatment,omitempty"`
	Exams          *string      `db:"exams" json:"exams,omitempty"`
	Notes          *string      `db:"notes" json:"notes,omitempty"`
	Medications    []Medication `db:"medications" json:"medications"`
	Attachments    []string     `db:"attachments" json:"attachments"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}

type IssueRequest struct {
	ConsultationID      uuid.UUID    `json:"consultation_id"`
	Medications         []Medication `json:"medications"`
	GeneralInstructions string       `json:"general_instructions"`
}

type PrescriptionPatch struct {
	Medications         []Medication `json:"medications,omitempty"`
	GeneralInstructions *string      `json:"general_instructions,omitempty"`
}

// HistoryPatch replaces the text fields that are set and appends
// medications and attachments.
type HistoryPatch struct {
	Diagnosis   *string      `json:"diagnosis,omitempty"`
	Treatment   *string      `json:"treatment,omitempty"`
	Exams       *string      `json:"exams,omitempty"`
	Notes       *string      `json:"notes,omitempty"`
	Medications []Medication `json:"medications,omitempty"`
	Attachments []string     `json:"attachments,omitempty"`
}

type HistoryFilter struct {
	PatientID      uuid.UUID
	ConsultationID *uuid.UUID
	From           *time.Time
	To             *time.Time
}
