package consultation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/telemed/consult/internal/domain/directory"
	"github.com/telemed/consult/internal/platform/apperr"
	"github.com/telemed/consult/internal/platform/auth"
)

// Book creates a consultation in agendada after checking that the doctor's
// slot is free. The open-slot unique index settles concurrent bookings, so
// of N racing requests for one slot exactly one succeeds.
func (s *Service) Book(ctx context.Context, actor auth.Actor, req BookingRequest) (*Consultation, error) {
	if actor.IsPatient() && req.PatientID == uuid.Nil {
		req.PatientID = actor.ID
	}
	if actor.IsDoctor() && req.DoctorID == uuid.Nil {
		req.DoctorID = actor.ID
	}
	if req.DoctorID == uuid.Nil {
		return nil, apperr.ErrInvalidInput.Withf("doctor_id is required")
	}
	if req.PatientID == uuid.Nil {
		return nil, apperr.ErrInvalidInput.Withf("patient_id is required")
	}
	req.Specialty = strings.TrimSpace(req.Specialty)
	if req.Specialty == "" {
		return nil, apperr.ErrInvalidInput.Withf("specialty is required")
	}
	if req.Value != nil && *req.Value < 0 {
		return nil, apperr.ErrInvalidInput.Withf("value must not be negative")
	}
	if req.ScheduledAt.IsZero() {
		return nil, apperr.ErrInvalidInput.Withf("scheduled_at is required")
	}

	at := req.ScheduledAt.UTC().Truncate(time.Microsecond)
	if !at.After(s.now()) {
		return nil, ErrPastDateTime
	}

	switch {
	case actor.IsPatient() && req.PatientID != actor.ID:
		return nil, apperr.ErrForbidden.Withf("patients book only for themselves")
	case actor.IsDoctor() && req.DoctorID != actor.ID:
		return nil, apperr.ErrForbidden.Withf("doctors book only into their own agenda")
	}

	doc, err := s.doctors.GetByID(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if !doc.Active {
		return nil, directory.ErrDoctorNotFound.Withf("doctor is not active")
	}

	existing, err := s.repo.FindActiveByDoctorAndTime(ctx, req.DoctorID, at)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrSlotConflict
	}

	c := &Consultation{
		PatientID:   req.PatientID,
		DoctorID:    req.DoctorID,
		ScheduledAt: at,
		Specialty:   req.Specialty,
		Notes:       req.Notes,
		Value:       req.Value,
		Status:      StatusScheduled,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("consultation_id", c.ID.String()).
		Str("doctor_id", c.DoctorID.String()).
		Time("scheduled_at", c.ScheduledAt).
		Msg("consultation booked")
	return c, nil
}

// AvailableSlots returns the bookable hourly instants of a doctor on the UTC
// day containing day. Instants that are taken or not in the future are left
// out.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]time.Time, error) {
	doc, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	slots := []time.Time{}
	if !doc.Active {
		return slots, nil
	}

	day = day.UTC()
	first := time.Date(day.Year(), day.Month(), day.Day(), s.cfg.SlotFirstHour, 0, 0, 0, time.UTC)
	last := time.Date(day.Year(), day.Month(), day.Day(), s.cfg.SlotLastHour, 0, 0, 0, time.UTC)

	taken, err := s.repo.ListActiveTimesByDoctor(ctx, doctorID, first, last)
	if err != nil {
		return nil, err
	}
	busy := make(map[int64]bool, len(taken))
	for _, t := range taken {
		busy[t.UnixMicro()] = true
	}

	now := s.now()
	for t := first; !t.After(last); t = t.Add(time.Hour) {
		if !t.After(now) || busy[t.UnixMicro()] {
			continue
		}
		slots = append(slots, t)
	}
	return slots, nil
}
