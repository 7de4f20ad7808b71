package review

import (
	"net/http"

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
	read.GET("/doctors/:id/reviews", h.ListDoctorReviews)

	pat := api.Group("", auth.RequireRole(auth.RolePatient))
	pat.POST("/consultations/:id/review", h.CreateReview)
	pat.PATCH("/reviews/:id", h.UpdateReview)
	pat.DELETE("/reviews/:id", h.DeleteReview)
}

type reviewBody struct {
	Score   *int    `json:"score"`
	Comment *string `json:"comment,omitempty"`
}

func (h *Handler) CreateReview(c echo.Context) error {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body reviewBody
	if err := c.Bind(&body); err != nil || body.Score == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "score is required")
	}
	rv, err := h.svc.CreateReview(c.Request().Context(), actor, id, *body.Score, body.Comment)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, rv)
}

func (h *Handler) UpdateReview(c echo.Context) error {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body reviewBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	rv, err := h.svc.UpdateReview(c.Request().Context(), actor, id, body.Score, body.Comment)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, rv)
}

func (h *Handler) DeleteReview(c echo.Context) error {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteReview(c.Request().Context(), actor, id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListDoctorReviews(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDoctorReviews(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
