package user

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
	api.GET("/user/role", h.CurrentRole)
	api.GET("/admin/users", h.ListDoctors, auth.RequireAdmin())
}

// CurrentRole reports the caller's resolved role and email.
func (h *Handler) CurrentRole(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"role":  string(id.Role),
		"email": id.Email,
	})
}

func (h *Handler) ListDoctors(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	doctors, err := h.svc.ListDoctors(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), apperr.Message(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"doctors": doctors})
}
