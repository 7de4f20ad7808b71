package review

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/telemed/consult/internal/domain/consultation"
	"github.com/telemed/consult/internal/domain/directory"
	"github.com/telemed/consult/internal/platform/apperr"
	"github.com/telemed/consult/internal/platform/auth"
	"github.com/telemed/consult/internal/platform/metrics"
)

// -- Mock Repositories --

type mockReviewRepo struct {
	mu      sync.Mutex
	reviews map[uuid.UUID]*Review
}

func newMockReviewRepo() *mockReviewRepo {
	return &mockReviewRepo{reviews: make(map[uuid.UUID]*Review)}
}

func (m *mockReviewRepo) Create(_ context.Context, r *Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.reviews {
		if o.ConsultationID == r.ConsultationID {
			return ErrReviewAlreadyExists
		}
	}
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	cp := *r
	m.reviews[r.ID] = &cp
	return nil
}

func (m *mockReviewRepo) GetByID(_ context.Context, id uuid.UUID) (*Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok {
		return nil, ErrReviewNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockReviewRepo) GetByConsultation(_ context.Context, consultationID uuid.UUID) (*Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reviews {
		if r.ConsultationID == consultationID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrReviewNotFound
}

func (m *mockReviewRepo) Update(_ context.Context, r *Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reviews[r.ID]; !ok {
		return ErrReviewNotFound
	}
	cp := *r
	m.reviews[r.ID] = &cp
	return nil
}

func (m *mockReviewRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reviews[id]; !ok {
		return ErrReviewNotFound
	}
	delete(m.reviews, id)
	return nil
}

func (m *mockReviewRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]*Review, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*Review
	for _, r := range m.reviews {
		if r.DoctorID == doctorID {
			cp := *r
			all = append(all, &cp)
		}
	}
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *mockReviewRepo) ScoresByDoctor(_ context.Context, doctorID uuid.UUID) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var scores []int
	for _, r := range m.reviews {
		if r.DoctorID == doctorID {
			scores = append(scores, r.Score)
		}
	}
	return scores, nil
}

type mockConsultations struct {
	items map[uuid.UUID]*consultation.Consultation
}

func (m *mockConsultations) GetByID(_ context.Context, id uuid.UUID) (*consultation.Consultation, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, consultation.ErrConsultationNotFound
	}
	cp := *c
	return &cp, nil
}

type mockDoctorRepo struct {
	mu      sync.Mutex
	ratings map[uuid.UUID]float64
	fail    error
}

func (m *mockDoctorRepo) Create(context.Context, *directory.Doctor) error { return nil }

func (m *mockDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*directory.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &directory.Doctor{ID: id, Active: true, AverageRating: m.ratings[id]}, nil
}

func (m *mockDoctorRepo) List(context.Context, directory.DoctorFilter, int, int) ([]*directory.Doctor, int, error) {
	return nil, 0, nil
}

func (m *mockDoctorRepo) SetActive(context.Context, uuid.UUID, bool) error { return nil }

func (m *mockDoctorRepo) UpdateAverageRating(_ context.Context, id uuid.UUID, rating float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.ratings[id] = rating
	return nil
}

func (m *mockDoctorRepo) rating(id uuid.UUID) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ratings[id]
}

// -- Fixture --

type fixture struct {
	svc           *Service
	reviews       *mockReviewRepo
	consultations *mockConsultations
	doctors       *mockDoctorRepo
	metrics       *metrics.Registry
	doctorID      uuid.UUID
	patient       auth.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reviews := newMockReviewRepo()
	consultations := &mockConsultations{items: make(map[uuid.UUID]*consultation.Consultation)}
	doctors := &mockDoctorRepo{ratings: make(map[uuid.UUID]float64)}
	reg := metrics.NewRegistry()
	svc := NewService(reviews, consultations, NewAggregator(reviews, doctors), zerolog.Nop(), reg)
	return &fixture{
		svc:           svc,
		reviews:       reviews,
		consultations: consultations,
		doctors:       doctors,
		metrics:       reg,
		doctorID:      uuid.New(),
		patient:       auth.Actor{ID: uuid.New(), Role: auth.RolePatient},
	}
}

func (f *fixture) consultation(status consultation.Status) uuid.UUID {
	id := uuid.New()
	f.consultations.items[id] = &consultation.Consultation{
		ID:        id,
		PatientID: f.patient.ID,
		DoctorID:  f.doctorID,
		Status:    status,
	}
	return id
}

// -- Average --

func TestAverage(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		want   float64
	}{
		{"no reviews", nil, 0},
		{"single", []int{5}, 5},
		{"even split", []int{4, 5}, 4.5},
		{"thirds round down", []int{1, 1, 2}, 1.33},
		{"thirds round up", []int{1, 2, 2}, 1.67},
		{"half rounds away from zero", []int{5, 5, 4, 4, 4, 4, 4, 3}, 4.13},
		{"all ones", []int{1, 1, 1, 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Average(tt.scores); got != tt.want {
				t.Errorf("Average(%v) = %v, want %v", tt.scores, got, tt.want)
			}
		})
	}
}

func TestAverage_OrderIndependent(t *testing.T) {
	a := Average([]int{3, 5, 4, 1, 2, 5, 5})
	b := Average([]int{5, 5, 5, 4, 3, 2, 1})
	if a != b {
		t.Errorf("order changed the result: %v vs %v", a, b)
	}
}

// -- Reviews --

func TestCreateReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cid := f.consultation(consultation.StatusFinished)
	comment := "  Ótimo atendimento "

	rv, err := f.svc.CreateReview(ctx, f.patient, cid, 5, &comment)
	if err != nil {
		t.Fatalf("CreateReview: %v", err)
	}
	if rv.DoctorID != f.doctorID || rv.Comment == nil || *rv.Comment != "Ótimo atendimento" {
		t.Errorf("unexpected review %+v", rv)
	}
	if got := f.doctors.rating(f.doctorID); got != 5 {
		t.Errorf("expected average 5.00, got %v", got)
	}
}

func TestCreateReview_ScoreRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cid := f.consultation(consultation.StatusFinished)

	for _, score := range []int{0, 6, -1} {
		if _, err := f.svc.CreateReview(ctx, f.patient, cid, score, nil); !errors.Is(err, ErrInvalidScore) {
			t.Errorf("score %d: expected ErrInvalidScore, got %v", score, err)
		}
	}
	if _, err := f.svc.CreateReview(ctx, f.patient, cid, 5, nil); err != nil {
		t.Fatalf("score 5 should be accepted: %v", err)
	}
	if got := f.doctors.rating(f.doctorID); got != 5 {
		t.Errorf("expected average 5.00, got %v", got)
	}
}

func TestCreateReview_Guards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	open := f.consultation(consultation.StatusInProgress)
	done := f.consultation(consultation.StatusFinished)
	stranger := auth.Actor{ID: uuid.New(), Role: auth.RolePatient}
	doctor := auth.Actor{ID: f.doctorID, Role: auth.RoleDoctor}

	if _, err := f.svc.CreateReview(ctx, f.patient, open, 4, nil); !errors.Is(err, ErrConsultationNotFinished) {
		t.Errorf("open consultation: expected ErrConsultationNotFinished, got %v", err)
	}
	if _, err := f.svc.CreateReview(ctx, f.patient, uuid.New(), 4, nil); !errors.Is(err, consultation.ErrConsultationNotFound) {
		t.Errorf("unknown consultation: expected not found, got %v", err)
	}
	if _, err := f.svc.CreateReview(ctx, stranger, done, 4, nil); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("other patient: expected forbidden, got %v", err)
	}
	if _, err := f.svc.CreateReview(ctx, doctor, done, 4, nil); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("doctor: expected forbidden, got %v", err)
	}

	if _, err := f.svc.CreateReview(ctx, f.patient, done, 4, nil); err != nil {
		t.Fatalf("CreateReview: %v", err)
	}
	if _, err := f.svc.CreateReview(ctx, f.patient, done, 3, nil); !errors.Is(err, ErrReviewAlreadyExists) {
		t.Errorf("second review: expected ErrReviewAlreadyExists, got %v", err)
	}
}

func TestRatingConvergence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	scores := []int{5, 4, 4, 3, 5}
	ids := make([]uuid.UUID, len(scores))
	for i, s := range scores {
		rv, err := f.svc.CreateReview(ctx, f.patient, f.consultation(consultation.StatusFinished), s, nil)
		if err != nil {
			t.Fatalf("CreateReview: %v", err)
		}
		ids[i] = rv.ID
	}
	if got := f.doctors.rating(f.doctorID); got != 4.2 {
		t.Fatalf("expected 4.20, got %v", got)
	}

	low := 1
	if _, err := f.svc.UpdateReview(ctx, f.patient, ids[0], &low, nil); err != nil {
		t.Fatalf("UpdateReview: %v", err)
	}
	// 1+4+4+3+5 = 17 over 5.
	if got := f.doctors.rating(f.doctorID); got != 3.4 {
		t.Errorf("expected 3.40 after update, got %v", got)
	}

	if err := f.svc.DeleteReview(ctx, f.patient, ids[0]); err != nil {
		t.Fatalf("DeleteReview: %v", err)
	}
	// 4+4+3+5 = 16 over 4.
	if got := f.doctors.rating(f.doctorID); got != 4 {
		t.Errorf("expected 4.00 after delete, got %v", got)
	}

	// Recomputing again changes nothing.
	avg, err := f.svc.agg.RecomputeAverage(ctx, f.doctorID)
	if err != nil || avg != 4 {
		t.Errorf("recompute: got %v, %v", avg, err)
	}
}

func TestRecompute_BestEffort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.doctors.fail = errors.New("doctors table locked")

	rv, err := f.svc.CreateReview(ctx, f.patient, f.consultation(consultation.StatusFinished), 4, nil)
	if err != nil {
		t.Fatalf("review must stand when the recompute fails: %v", err)
	}
	if _, err := f.reviews.GetByID(ctx, rv.ID); err != nil {
		t.Errorf("review should be stored: %v", err)
	}
	got := f.metrics.Value(metrics.BestEffortFailures, metrics.Label{Name: "operation", Value: opRatingRecompute})
	if got != 1 {
		t.Errorf("expected 1 counted failure, got %d", got)
	}
}

func TestUpdateReview_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rv, _ := f.svc.CreateReview(ctx, f.patient, f.consultation(consultation.StatusFinished), 4, nil)

	stranger := auth.Actor{ID: uuid.New(), Role: auth.RolePatient}
	score := 2
	if _, err := f.svc.UpdateReview(ctx, stranger, rv.ID, &score, nil); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
	bad := 9
	if _, err := f.svc.UpdateReview(ctx, f.patient, rv.ID, &bad, nil); !errors.Is(err, ErrInvalidScore) {
		t.Errorf("expected ErrInvalidScore, got %v", err)
	}
	if _, err := f.svc.UpdateReview(ctx, f.patient, uuid.New(), &score, nil); !errors.Is(err, ErrReviewNotFound) {
		t.Errorf("expected ErrReviewNotFound, got %v", err)
	}
}

func TestDeleteReview_Admin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rv, _ := f.svc.CreateReview(ctx, f.patient, f.consultation(consultation.StatusFinished), 2, nil)

	doctor := auth.Actor{ID: f.doctorID, Role: auth.RoleDoctor}
	if err := f.svc.DeleteReview(ctx, doctor, rv.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("doctor: expected forbidden, got %v", err)
	}
	admin := auth.Actor{ID: uuid.New(), Role: auth.RoleAdmin}
	if err := f.svc.DeleteReview(ctx, admin, rv.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if got := f.doctors.rating(f.doctorID); got != 0 {
		t.Errorf("no reviews left, expected 0, got %v", got)
	}
}

func TestListDoctorReviews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.svc.CreateReview(ctx, f.patient, f.consultation(consultation.StatusFinished), 5, nil)
	}
	items, total, err := f.svc.ListDoctorReviews(ctx, f.doctorID, 2, 0)
	if err != nil {
		t.Fatalf("ListDoctorReviews: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Errorf("expected total 3 page 2, got %d and %d", total, len(items))
	}
}
