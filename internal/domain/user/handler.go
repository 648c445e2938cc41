package user

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/heartcare/heartcare/internal/platform/auth"
	"github.com/heartcare/heartcare/internal/platform/web"
	"github.com/heartcare/heartcare/pkg/pagination"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes mounts the login endpoint.
func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/auth/login", h.Login)
}

// RegisterProfileRoutes mounts the self-service endpoints on an
// authenticated group.
func (h *Handler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.Profile)
	g.PUT("/profile", h.UpdateProfile)
	g.POST("/profile/password", h.ChangePassword)
}

// RegisterAdminRoutes mounts account management on an admin-only group.
func (h *Handler) RegisterAdminRoutes(g *echo.Group) {
	g.GET("/users", h.List)
	g.POST("/users", h.Create)
	g.GET("/users/:id", h.Get)
	g.PUT("/users/:id", h.Update)
	g.DELETE("/users/:id", h.Delete)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	u, token, err := h.service.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return web.Error(c, err)
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, User: u})
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	users, total, err := h.service.List(c.Request().Context(), p)
	if err != nil {
		return web.Error(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(users, total, p))
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	u, err := h.service.Create(c.Request().Context(), in)
	if err != nil {
		return web.Error(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	u, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return web.Error(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	u, err := h.service.Update(c.Request().Context(), id, in)
	if err != nil {
		return web.Error(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return web.Error(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Profile(c echo.Context) error {
	u, err := h.service.Get(c.Request().Context(), auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return web.Error(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	var in ProfileInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	u, err := h.service.UpdateProfile(c.Request().Context(), in)
	if err != nil {
		return web.Error(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) ChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.service.ChangePassword(c.Request().Context(), req.CurrentPassword, req.NewPassword); err != nil {
		return web.Error(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
