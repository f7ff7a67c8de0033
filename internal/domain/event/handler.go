package event

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tocdoc/tocdoc/internal/platform/apperr"
	"github.com/tocdoc/tocdoc/internal/platform/auth"
	"github.com/tocdoc/tocdoc/pkg/pagination"
)

// Sweeper is the retention hook invoked after listing events. Listing is
// the portal's natural compaction point, so every fetch also prunes.
type Sweeper interface {
	SweepExpiredEvents(ctx context.Context) (discharged, longStay int64, err error)
}

type Handler struct {
	svc     *Service
	sweeper Sweeper
	logger  zerolog.Logger
}

func NewHandler(svc *Service, sweeper Sweeper, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, sweeper: sweeper, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/admissions", h.Record, auth.RequireAdmin())
	api.PATCH("/patients/:alias/discharge", h.Discharge)
	api.GET("/events", h.List)
	api.PATCH("/events/:id", h.Update)
	api.DELETE("/events/:id", h.Delete, auth.RequireAdmin())
	api.GET("/doctors/:id/patients", h.DoctorRoster, auth.RequireAdmin())
}

func (h *Handler) Record(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	var in RecordInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	e, err := h.svc.RecordEvent(c.Request().Context(), id, in)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	status := http.StatusCreated
	if e.Status == StatusDischarged {
		status = http.StatusOK
	}
	return c.JSON(status, e)
}

func (h *Handler) Discharge(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	var in DischargeInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	e, err := h.svc.Discharge(c.Request().Context(), id, c.Param("alias"), in)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	id, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var status *Status
	if raw := c.QueryParam("status"); raw != "" {
		s := Status(raw)
		if !s.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "status must be ADMITTED or DISCHARGED")
		}
		status = &s
	}

	events, err := h.svc.ListEvents(ctx, id, status, pagination.FromContext(c))
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}

	if h.sweeper != nil {
		if d, l, serr := h.sweeper.SweepExpiredEvents(ctx); serr != nil {
			h.logger.Warn().Err(serr).Msg("retention sweep after listing failed")
		} else if d+l > 0 {
			h.logger.Info().Int64("discharged", d).Int64("long_stay", l).Msg("retention sweep pruned events")
		}
	}

	if events == nil {
		events = []*Event{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"events": events})
}

func (h *Handler) Update(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event id")
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	patch, err := ParsePatch(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	e, err := h.svc.UpdateEvent(c.Request().Context(), id, eventID, patch)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) Delete(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event id")
	}
	if err := h.svc.DeleteEvent(c.Request().Context(), id, eventID); err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DoctorRoster(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	events, err := h.svc.ListAdmittedByDoctor(c.Request().Context(), id, doctorID)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	if events == nil {
		events = []*Event{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"patients": events})
}
