package directory

import (
	"context"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/telemed/consult/internal/platform/apperr"
	"github.com/telemed/consult/internal/platform/auth"
)

var (
	ErrDoctorNotFound  = apperr.New(apperr.KindNotFound, "DOCTOR_NOT_FOUND", "doctor not found")
	ErrPatientNotFound = apperr.New(apperr.KindNotFound, "PATIENT_NOT_FOUND", "patient not found")
)

type Service struct {
	doctors  DoctorRepository
	patients PatientRepository
}

func NewService(doctors DoctorRepository, patients PatientRepository) *Service {
	return &Service{doctors: doctors, patients: patients}
}

// -- Doctors --

func (s *Service) CreateDoctor(ctx context.Context, actor auth.Actor, d *Doctor) error {
	if !actor.IsAdmin() {
		return apperr.ErrForbidden.Withf("only admins register doctors")
	}
	d.Name = strings.TrimSpace(d.Name)
	d.Specialty = strings.TrimSpace(d.Specialty)
	if d.Name == "" {
		return apperr.ErrInvalidInput.Withf("name is required")
	}
	if d.Specialty == "" {
		return apperr.ErrInvalidInput.Withf("specialty is required")
	}
	d.Active = true
	d.AverageRating = 0
	return s.doctors.Create(ctx, d)
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, f, limit, offset)
}

// SetDoctorActive toggles whether the doctor accepts new bookings. Existing
// consultations are untouched.
func (s *Service) SetDoctorActive(ctx context.Context, actor auth.Actor, id uuid.UUID, active bool) error {
	if !actor.IsAdmin() {
		return apperr.ErrForbidden.Withf("only admins change doctor status")
	}
	return s.doctors.SetActive(ctx, id, active)
}

// -- Patients --

func (s *Service) CreatePatient(ctx context.Context, actor auth.Actor, p *Patient) error {
	if !actor.IsAdmin() {
		return apperr.ErrForbidden.Withf("only admins register patients")
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return apperr.ErrInvalidInput.Withf("name is required")
	}
	if p.Email != nil {
		if _, err := mail.ParseAddress(*p.Email); err != nil {
			return apperr.ErrInvalidInput.Withf("email is not valid")
		}
	}
	return s.patients.Create(ctx, p)
}

// GetPatient is open to admins, doctors and the patient themself.
func (s *Service) GetPatient(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Patient, error) {
	if actor.IsPatient() && actor.ID != id {
		return nil, apperr.ErrForbidden.Withf("patients may only read their own record")
	}
	return s.patients.GetByID(ctx, id)
}
