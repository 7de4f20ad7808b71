package consultation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/telemed/consult/internal/platform/auth"
)

func newTestHandler(t *testing.T) (*Handler, *fixture, *echo.Echo) {
	t.Helper()
	f := newFixture(t)
	return NewHandler(f.svc), f, echo.New()
}

func jsonRequest(method, body string, actor auth.Actor) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req.WithContext(auth.WithActor(req.Context(), actor))
}

func TestHandler_Book(t *testing.T) {
	h, f, e := newTestHandler(t)
	body := `{"doctor_id":"` + f.doctorID.String() + `","scheduled_at":"2030-03-11T14:00:00Z","specialty":"Cardiologia"}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, body, f.patient), rec)

	if err := h.Book(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var out Consultation
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.Status != StatusScheduled || out.PatientID != f.patient.ID {
		t.Errorf("unexpected consultation %+v", out)
	}
}

func TestHandler_Book_Conflict(t *testing.T) {
	h, f, e := newTestHandler(t)
	f.seed(StatusConfirmed, time.Date(2030, 3, 11, 14, 0, 0, 0, time.UTC))
	body := `{"doctor_id":"` + f.doctorID.String() + `","scheduled_at":"2030-03-11T14:00:00Z","specialty":"Cardiologia"}`
	c := e.NewContext(jsonRequest(http.MethodPost, body, f.patient), httptest.NewRecorder())

	err := h.Book(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
}

func TestHandler_Book_Past(t *testing.T) {
	h, f, e := newTestHandler(t)
	body := `{"doctor_id":"` + f.doctorID.String() + `","scheduled_at":"2020-01-01T10:00:00Z","specialty":"Cardiologia"}`
	c := e.NewContext(jsonRequest(http.MethodPost, body, f.patient), httptest.NewRecorder())

	err := h.Book(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_Transition(t *testing.T) {
	h, f, e := newTestHandler(t)
	cons := f.seed(StatusScheduled, fixedNow.Add(24*time.Hour))
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"status":"confirmada"}`, f.doctor), rec)
	c.SetParamNames("id")
	c.SetParamValues(cons.ID.String())

	if err := h.Transition(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_Transition_Backward(t *testing.T) {
	h, f, e := newTestHandler(t)
	cons := f.seed(StatusInProgress, fixedNow.Add(24*time.Hour))
	c := e.NewContext(jsonRequest(http.MethodPost, `{"status":"agendada"}`, f.doctor), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(cons.ID.String())

	err := h.Transition(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
}

func TestHandler_Transition_MissingStatus(t *testing.T) {
	h, f, e := newTestHandler(t)
	c := e.NewContext(jsonRequest(http.MethodPost, `{}`, f.doctor), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.Transition(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_Cancel_TooClose(t *testing.T) {
	h, f, e := newTestHandler(t)
	cons := f.seed(StatusConfirmed, fixedNow.Add(90*time.Minute))
	c := e.NewContext(jsonRequest(http.MethodPost, `{"reason":"imprevisto"}`, f.patient), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(cons.ID.String())

	err := h.Cancel(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
}

func TestHandler_Get_NotFound(t *testing.T) {
	h, f, e := newTestHandler(t)
	c := e.NewContext(jsonRequest(http.MethodGet, "", f.admin), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.Get(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_List(t *testing.T) {
	h, f, e := newTestHandler(t)
	f.seed(StatusScheduled, fixedNow.Add(24*time.Hour))
	f.seed(StatusConfirmed, fixedNow.Add(48*time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/?status=confirmada", nil)
	req = req.WithContext(auth.WithActor(req.Context(), f.patient))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Total int `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Total != 1 {
		t.Errorf("expected 1 confirmed consultation, got %d", body.Total)
	}
}

func TestHandler_AvailableSlots(t *testing.T) {
	h, f, e := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/?date=2030-03-11", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(f.doctorID.String())

	if err := h.AvailableSlots(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Slots []time.Time `json:"slots"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if len(body.Slots) != 10 {
		t.Errorf("expected 10 slots, got %d", len(body.Slots))
	}
}

func TestHandler_AvailableSlots_BadDate(t *testing.T) {
	h, f, e := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/?date=11/03/2030", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(f.doctorID.String())

	err := h.AvailableSlots(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
