package account

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/caremgr/caremgr/internal/platform/auth"
	"github.com/caremgr/caremgr/internal/platform/web"
)

type Handler struct {
	svc      *Service
	accounts *web.Resource[Account, *Account]
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, accounts: &web.Resource[Account, *Account]{Manager: svc.accounts}}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/auth/register", h.Register)
	api.POST("/auth/token", h.Token)

	api.GET("/accounts", h.accounts.Index)
	api.GET("/accounts/me", h.Me)
	api.GET("/accounts/:id", h.accounts.Details)
	api.POST("/accounts", h.CreateAccount)
	api.PUT("/accounts/:id", h.accounts.Edit)
	api.DELETE("/accounts/:id", h.accounts.Delete)

	admin := auth.RequireRole(auth.RoleAdmin)
	api.POST("/members", h.CreateMember, admin)
	api.PUT("/members/:login/active", h.SetMemberActive, admin)
}

func (h *Handler) Register(c echo.Context) error {
	var reg Registration
	if err := c.Bind(&reg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	a, err := h.svc.Register(c.Request().Context(), &reg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Token(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	tok, err := h.svc.Login(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tok)
}

func (h *Handler) Me(c echo.Context) error {
	a, err := h.svc.GetMyAccount(c.Request().Context(), web.Caller(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) CreateAccount(c echo.Context) error {
	var a Account
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	out, err := h.svc.CreateAccount(c.Request().Context(), web.Caller(c), &a)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *Handler) CreateMember(c echo.Context) error {
	var in NewMember
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	m, err := h.svc.CreateMember(c.Request().Context(), &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) SetMemberActive(c echo.Context) error {
	var body struct {
		Active *bool `json:"active"`
	}
	if err := c.Bind(&body); err != nil || body.Active == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "active must be true or false")
	}
	if err := h.svc.SetMemberActive(c.Request().Context(), c.Param("login"), *body.Active); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
