package patient

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tocdoc/tocdoc/internal/platform/apperr"
	"github.com/tocdoc/tocdoc/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients", h.List)
	api.POST("/patients", h.Create, auth.RequireAdmin())
	api.GET("/admin/patients", h.Overview, auth.RequireAdmin())
	api.POST("/admin/patients", h.BatchCreate, auth.RequireAdmin())
	api.DELETE("/admin/patients", h.Purge, auth.RequireAdmin())
}

func (h *Handler) List(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	patients, err := h.svc.List(c.Request().Context(), id, FilterKind(c.QueryParam("filter")))
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	if patients == nil {
		patients = []*Patient{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"patients": patients,
		"count":    len(patients),
		"userRole": id.Role,
	})
}

func (h *Handler) Create(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.Create(c.Request().Context(), id, in)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"patient": p,
		"message": "Patient created successfully",
	})
}

func (h *Handler) Overview(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	res, err := h.svc.Overview(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) BatchCreate(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	var body struct {
		Patients []Input `json:"patients"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.BatchCreate(c.Request().Context(), id, body.Patients)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Purge(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	res, err := h.svc.PurgeExpired(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, res)
}
