package diagnosis

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mentalspace/ehr/internal/platform/auth"
	"github.com/mentalspace/ehr/internal/platform/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/diagnoses", auth.RequireRole(auth.RoleClinician, auth.RoleSupervisor))
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/history", h.History)

	c := api.Group("/clients", auth.RequireRole(auth.RoleClinician, auth.RoleSupervisor))
	c.GET("/:clientId/diagnoses", h.ListByClient)
}

func callerID(c echo.Context) (uuid.UUID, error) {
	uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	return uid, nil
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

type createDiagnosisRequest struct {
	NoteID        uuid.UUID  `json:"noteId" validate:"required"`
	ClientID      uuid.UUID  `json:"clientId" validate:"required"`
	ICDCode       string     `json:"icdCode" validate:"required"`
	Description   string     `json:"description" validate:"required"`
	DiagnosisType *string    `json:"diagnosisType"`
	Severity      *string    `json:"severity"`
	Status        string     `json:"status"`
	DiagnosisDate *time.Time `json:"diagnosisDate"`
}

func (h *Handler) Create(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}
	var req createDiagnosisRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	d := &Diagnosis{
		ClientID:      req.ClientID,
		ICDCode:       req.ICDCode,
		Description:   req.Description,
		DiagnosisType: req.DiagnosisType,
		Severity:      req.Severity,
		Status:        req.Status,
		DiagnosisDate: req.DiagnosisDate,
	}
	created, err := h.svc.Create(c.Request().Context(), uid, req.NoteID, d)
	if err != nil {
		return err
	}
	return response.Created(c, created)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.OK(c, d)
}

type updateDiagnosisRequest struct {
	NoteID        uuid.UUID `json:"noteId" validate:"required"`
	ICDCode       *string   `json:"icdCode"`
	Description   *string   `json:"description"`
	DiagnosisType *string   `json:"diagnosisType"`
	Severity      *string   `json:"severity"`
	Status        *string   `json:"status"`
	ChangeReason  *string   `json:"changeReason"`
}

func (h *Handler) Update(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateDiagnosisRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	d, err := h.svc.Update(c.Request().Context(), uid, req.NoteID, id, UpdateInput{
		ICDCode:       req.ICDCode,
		Description:   req.Description,
		DiagnosisType: req.DiagnosisType,
		Severity:      req.Severity,
		Status:        req.Status,
		ChangeReason:  req.ChangeReason,
	})
	if err != nil {
		return err
	}
	return response.OK(c, d)
}

type deleteDiagnosisRequest struct {
	NoteID uuid.UUID `json:"noteId" validate:"required"`
	Reason *string   `json:"reason"`
}

func (h *Handler) Delete(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req deleteDiagnosisRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.svc.Delete(c.Request().Context(), uid, req.NoteID, id, req.Reason); err != nil {
		return err
	}
	return response.OKMessage(c, "Diagnosis deleted")
}

func (h *Handler) History(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	items, err := h.svc.GetHistory(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.OK(c, items)
}

func (h *Handler) ListByClient(c echo.Context) error {
	clientID, err := pathID(c, "clientId")
	if err != nil {
		return err
	}
	activeOnly := c.QueryParam("status") == "ACTIVE" || c.QueryParam("activeOnly") == "true"
	items, err := h.svc.ListByClient(c.Request().Context(), clientID, activeOnly)
	if err != nil {
		return err
	}
	return response.OK(c, items)
}
