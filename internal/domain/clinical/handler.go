package clinical

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/telemed/consult/internal/platform/apperr"
	"github.com/telemed/consult/internal/platform/auth"
	"github.com/telemed/consult/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RolePatient, auth.RoleDoctor))
	read.GET("/consultations/:id/prescription", h.GetPrescription)
	read.GET("/patients/:id/history", h.ListHistory)

	doc := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doc.POST("/consultations/:id/prescription", h.IssuePrescription)
	doc.PATCH("/prescriptions/:id", h.UpdatePrescription)
	doc.POST("/prescriptions/:id/cancel", h.CancelPrescription)
	doc.POST("/history", h.CreateHistoryEntry)
	doc.PATCH("/history/:id", h.UpdateHistoryEntry)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.DELETE("/history/:id", h.DeleteHistoryEntry)
}

// -- Prescriptions --

type issueBody struct {
	Medications         []Medication `json:"medications"`
	GeneralInstructions string       `json:"general_instructions"`
}

func (h *Handler) IssuePrescription(c echo.Context) error {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body issueBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.IssuePrescription(c.Request().Context(), actor, IssueRequest{
		ConsultationID:      id,
		Medications:         body.Medications,
		GeneralInstructions: body.GeneralInstructions,
	})
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPrescription(c echo.Context) error {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPrescriptionByConsultation(c.Request().Context(), actor, id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdatePrescription(c echo.Context) error {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var patch PrescriptionPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.UpdatePrescription(c.Request().Context(), actor, id, patch)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) CancelPrescription(c echo.Context) error {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.CancelPrescription(c.Request().Context(), actor, id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

// -- Medical history --

func (h *Handler) ListHistory(c echo.Context) error {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)

	f := HistoryFilter{PatientID: patientID}
	if v := c.QueryParam("consultation_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid consultation_id")
		}
		f.ConsultationID = &id
	}
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "from must be RFC 3339")
		}
		f.From = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "to must be RFC 3339")
		}
		f.To = &t
	}

	items, total, err := h.svc.ListHistory(c.Request().Context(), actor, f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreateHistoryEntry(c echo.Context) error {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	var e HistoryEntry
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.CreateHistoryEntry(c.Request().Context(), actor, &e); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) UpdateHistoryEntry(c echo.Context) error {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var patch HistoryPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	e, err := h.svc.UpdateHistoryEntry(c.Request().Context(), actor, id, patch)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) DeleteHistoryEntry(c echo.Context) error {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteHistoryEntry(c.Request().Context(), actor, id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
