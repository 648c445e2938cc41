package patient

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/heartcare/heartcare/internal/platform/web"
	"github.com/heartcare/heartcare/pkg/pagination"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the patient endpoints on an authenticated group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/patients", h.Create)
	g.GET("/patients", h.List)
	g.GET("/patients/:id", h.Get)
	g.PUT("/patients/:id", h.Update)
	g.DELETE("/patients/:id", h.Delete)
	g.GET("/dashboard", h.Dashboard)
}

func (h *Handler) Create(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	p, err := h.service.Create(c.Request().Context(), in)
	if err != nil {
		return web.Error(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	patients, total, err := h.service.List(c.Request().Context(), c.QueryParam("search"), p)
	if err != nil {
		return web.Error(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, p))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	p, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return web.Error(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	p, err := h.service.Update(c.Request().Context(), id, in)
	if err != nil {
		return web.Error(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return web.Error(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Dashboard(c echo.Context) error {
	d, err := h.service.GetDashboard(c.Request().Context())
	if err != nil {
		return web.Error(c, err)
	}
	return c.JSON(http.StatusOK, d)
}
