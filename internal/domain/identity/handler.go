package identity

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mentalspace/ehr/internal/platform/auth"
	"github.com/mentalspace/ehr/internal/platform/response"
	"github.com/mentalspace/ehr/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/users/me", h.GetMe)
	api.GET("/users/me/supervisees", h.ListMySupervisees, auth.RequireRole(auth.RoleSupervisor))

	adminGroup := api.Group("", auth.RequireRole(auth.RoleAdministrator))
	adminGroup.POST("/users", h.CreateUser)
	adminGroup.GET("/users", h.ListUsers)
	adminGroup.GET("/users/:id", h.GetUser)
	adminGroup.PATCH("/users/:id", h.UpdateUser)
}

type createUserRequest struct {
	Email        string   `json:"email" validate:"required,email"`
	FirstName    string   `json:"firstName" validate:"required"`
	LastName     string   `json:"lastName" validate:"required"`
	Title        *string  `json:"title"`
	Roles        []string `json:"roles"`
	SupervisorID *string  `json:"supervisorId"`
	LicenseState *string  `json:"licenseState"`
}

func (h *Handler) CreateUser(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	u := &User{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Title:        req.Title,
		Roles:        req.Roles,
		LicenseState: req.LicenseState,
	}
	if req.SupervisorID != nil {
		sid, err := uuid.Parse(*req.SupervisorID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid supervisorId")
		}
		u.SupervisorID = &sid
		u.RequiresCosign = true
	}

	if err := h.svc.CreateUser(c.Request().Context(), u); err != nil {
		return err
	}
	return response.Created(c, u)
}

func (h *Handler) GetMe(c echo.Context) error {
	uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	u, err := h.svc.GetUser(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return response.OK(c, u)
}

func (h *Handler) GetUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	u, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.OK(c, u)
}

func (h *Handler) UpdateUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	u, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if err := c.Bind(u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u.ID = id
	if err := h.svc.UpdateUser(c.Request().Context(), u); err != nil {
		return err
	}
	return response.OK(c, u)
}

func (h *Handler) ListMySupervisees(c echo.Context) error {
	uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	users, err := h.svc.ListSupervisees(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return response.OK(c, users)
}

func (h *Handler) ListUsers(c echo.Context) error {
	pg := pagination.FromContext(c)
	users, total, err := h.svc.ListUsers(c.Request().Context(), pg.Limit, pg.Offset())
	if err != nil {
		return err
	}
	return response.Paginated(c, users, pg.Page, pg.Limit, total)
}
