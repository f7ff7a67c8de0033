package retention

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tocdoc/tocdoc/internal/platform/apperr"
	"github.com/tocdoc/tocdoc/internal/platform/auth"
)

type Handler struct {
	sweeper *Sweeper
}

func NewHandler(sweeper *Sweeper) *Handler {
	return &Handler{sweeper: sweeper}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/admin/retention/sweep", h.Sweep, auth.RequireAdmin())
}

// Sweep runs the retention pass on demand.
func (h *Handler) Sweep(c echo.Context) error {
	res, err := h.sweeper.Sweep(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, res)
}
