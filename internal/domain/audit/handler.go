package audit

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/heartcare/heartcare/internal/platform/web"
	"github.com/heartcare/heartcare/pkg/pagination"
)

// Audit listings default to a larger page than the rest of the API.
const listPerPage = 50

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the audit-log endpoints on an admin-only group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/audit-logs", h.List)
}

// List returns audit entries newest first, filterable by action, table,
// and acting user.
func (h *Handler) List(c echo.Context) error {
	filter := Filter{
		Action:    c.QueryParam("action"),
		TableName: c.QueryParam("table"),
	}
	if raw := c.QueryParam("user_id"); raw != "" {
		uid, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid user_id")
		}
		filter.UserID = &uid
	}

	p := pagination.FromContextDefault(c, listPerPage)
	entries, total, err := h.service.List(c.Request().Context(), filter, p)
	if err != nil {
		return web.Error(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, p))
}
