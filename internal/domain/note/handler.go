package note

import (
	"net/http"
	"time"

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
	g := api.Group("/clinical-notes", auth.RequireRole(auth.RoleClinician, auth.RoleSupervisor))
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/stats", h.Stats)
	g.GET("/pending-cosign", h.ListForCosigning, auth.RequireRole(auth.RoleSupervisor))
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/sign", h.Sign)
	g.POST("/:id/cosign", h.Cosign, auth.RequireRole(auth.RoleSupervisor))
	g.POST("/:id/return-for-revision", h.ReturnForRevision, auth.RequireRole(auth.RoleSupervisor))
	g.POST("/:id/resubmit", h.Resubmit)
	g.GET("/:id/signatures", h.SignatureEvents)

	c := api.Group("/clients", auth.RequireRole(auth.RoleClinician, auth.RoleSupervisor))
	c.GET("/:clientId/notes", h.ListByClient)
	c.GET("/:clientId/treatment-plan-status", h.TreatmentPlanStatus)
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

type createNoteRequest struct {
	ClientID      uuid.UUID  `json:"clientId" validate:"required"`
	AppointmentID *uuid.UUID `json:"appointmentId"`
	NoteType      string     `json:"noteType" validate:"required"`
	Status        string     `json:"status"`

	SessionDate      *time.Time `json:"sessionDate"`
	SessionStartTime *string    `json:"sessionStartTime"`
	SessionEndTime   *string    `json:"sessionEndTime"`
	SessionDuration  *int       `json:"sessionDuration"`

	Subjective *string `json:"subjective"`
	Objective  *string `json:"objective"`
	Assessment *string `json:"assessment"`
	Plan       *string `json:"plan"`

	SuicidalIdeation      bool    `json:"suicidalIdeation"`
	SuicidalPlan          bool    `json:"suicidalPlan"`
	HomicidalIdeation     bool    `json:"homicidalIdeation"`
	SelfHarm              bool    `json:"selfHarm"`
	RiskLevel             *string `json:"riskLevel"`
	RiskAssessmentDetails *string `json:"riskAssessmentDetails"`
	InterventionsTaken    *string `json:"interventionsTaken"`

	DiagnosisCodes      []string `json:"diagnosisCodes"`
	InterventionsUsed   []string `json:"interventionsUsed"`
	ProgressTowardGoals *string  `json:"progressTowardGoals"`

	NextSessionPlan *string    `json:"nextSessionPlan"`
	NextSessionDate *time.Time `json:"nextSessionDate"`
	CPTCode         *string    `json:"cptCode"`
	Billable        bool       `json:"billable"`
	DueDate         *time.Time `json:"dueDate"`
}

func (h *Handler) Create(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}
	var req createNoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	n := &ClinicalNote{
		ClientID:              req.ClientID,
		AppointmentID:         req.AppointmentID,
		NoteType:              req.NoteType,
		Status:                req.Status,
		SessionDate:           req.SessionDate,
		SessionStartTime:      req.SessionStartTime,
		SessionEndTime:        req.SessionEndTime,
		SessionDuration:       req.SessionDuration,
		Subjective:            req.Subjective,
		Objective:             req.Objective,
		Assessment:            req.Assessment,
		Plan:                  req.Plan,
		SuicidalIdeation:      req.SuicidalIdeation,
		SuicidalPlan:          req.SuicidalPlan,
		HomicidalIdeation:     req.HomicidalIdeation,
		SelfHarm:              req.SelfHarm,
		RiskLevel:             req.RiskLevel,
		RiskAssessmentDetails: req.RiskAssessmentDetails,
		InterventionsTaken:    req.InterventionsTaken,
		DiagnosisCodes:        req.DiagnosisCodes,
		InterventionsUsed:     req.InterventionsUsed,
		ProgressTowardGoals:   req.ProgressTowardGoals,
		NextSessionPlan:       req.NextSessionPlan,
		NextSessionDate:       req.NextSessionDate,
		CPTCode:               req.CPTCode,
		Billable:              req.Billable,
		DueDate:               req.DueDate,
	}

	created, err := h.svc.Create(c.Request().Context(), uid, n)
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
	n, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.OK(c, n)
}

func parseFilters(c echo.Context) (Filters, error) {
	var f Filters
	if v := c.QueryParam("clientId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid clientId")
		}
		f.ClientID = &id
	}
	f.Status = c.QueryParam("status")
	f.NoteType = c.QueryParam("noteType")
	if v := c.QueryParam("startDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid startDate")
		}
		f.StartDate = &t
	}
	if v := c.QueryParam("endDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid endDate")
		}
		f.EndDate = &t
	}
	return f, nil
}

func (h *Handler) List(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}
	f, err := parseFilters(c)
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)

	items, total, err := h.svc.List(c.Request().Context(), uid,
		auth.RolesFromContext(c.Request().Context()), f, p.Limit, p.Offset())
	if err != nil {
		return err
	}
	if items == nil {
		items = []*ClinicalNote{}
	}
	return response.Paginated(c, items, p.Page, p.Limit, total)
}

func (h *Handler) ListByClient(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}
	clientID, err := pathID(c, "clientId")
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	f := Filters{ClientID: &clientID, Status: c.QueryParam("status"), NoteType: c.QueryParam("noteType")}

	items, total, err := h.svc.List(c.Request().Context(), uid,
		auth.RolesFromContext(c.Request().Context()), f, p.Limit, p.Offset())
	if err != nil {
		return err
	}
	if items == nil {
		items = []*ClinicalNote{}
	}
	return response.Paginated(c, items, p.Page, p.Limit, total)
}

type updateNoteRequest struct {
	AppointmentID         *uuid.UUID `json:"appointmentId"`
	SessionDate           *time.Time `json:"sessionDate"`
	SessionStartTime      *string    `json:"sessionStartTime"`
	SessionEndTime        *string    `json:"sessionEndTime"`
	SessionDuration       *int       `json:"sessionDuration"`
	Subjective            *string    `json:"subjective"`
	Objective             *string    `json:"objective"`
	Assessment            *string    `json:"assessment"`
	Plan                  *string    `json:"plan"`
	SuicidalIdeation      *bool      `json:"suicidalIdeation"`
	SuicidalPlan          *bool      `json:"suicidalPlan"`
	HomicidalIdeation     *bool      `json:"homicidalIdeation"`
	SelfHarm              *bool      `json:"selfHarm"`
	RiskLevel             *string    `json:"riskLevel"`
	RiskAssessmentDetails *string    `json:"riskAssessmentDetails"`
	InterventionsTaken    *string    `json:"interventionsTaken"`
	DiagnosisCodes        []string   `json:"diagnosisCodes"`
	InterventionsUsed     []string   `json:"interventionsUsed"`
	ProgressTowardGoals   *string    `json:"progressTowardGoals"`
	NextSessionPlan       *string    `json:"nextSessionPlan"`
	NextSessionDate       *time.Time `json:"nextSessionDate"`
	CPTCode               *string    `json:"cptCode"`
	Billable              *bool      `json:"billable"`
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
	var req updateNoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	updated, err := h.svc.Update(c.Request().Context(), uid, id, UpdateInput{
		AppointmentID:         req.AppointmentID,
		SessionDate:           req.SessionDate,
		SessionStartTime:      req.SessionStartTime,
		SessionEndTime:        req.SessionEndTime,
		SessionDuration:       req.SessionDuration,
		Subjective:            req.Subjective,
		Objective:             req.Objective,
		Assessment:            req.Assessment,
		Plan:                  req.Plan,
		SuicidalIdeation:      req.SuicidalIdeation,
		SuicidalPlan:          req.SuicidalPlan,
		HomicidalIdeation:     req.HomicidalIdeation,
		SelfHarm:              req.SelfHarm,
		RiskLevel:             req.RiskLevel,
		RiskAssessmentDetails: req.RiskAssessmentDetails,
		InterventionsTaken:    req.InterventionsTaken,
		DiagnosisCodes:        req.DiagnosisCodes,
		InterventionsUsed:     req.InterventionsUsed,
		ProgressTowardGoals:   req.ProgressTowardGoals,
		NextSessionPlan:       req.NextSessionPlan,
		NextSessionDate:       req.NextSessionDate,
		CPTCode:               req.CPTCode,
		Billable:              req.Billable,
	})
	if err != nil {
		return err
	}
	return response.OK(c, updated)
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
	if err := h.svc.Delete(c.Request().Context(), uid, id); err != nil {
		return err
	}
	return response.OKMessage(c, "Note deleted")
}

type signRequest struct {
	Pin      string `json:"pin"`
	Password string `json:"password"`
}

func (h *Handler) Sign(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req signRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	n, err := h.svc.Sign(c.Request().Context(), SignInput{
		NoteID:    id,
		UserID:    uid,
		Pin:       req.Pin,
		Password:  req.Password,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		return err
	}
	return response.OK(c, n)
}

type cosignRequest struct {
	Pin                string `json:"pin"`
	Password           string `json:"password"`
	SupervisorComments string `json:"supervisorComments"`
}

func (h *Handler) Cosign(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req cosignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	n, err := h.svc.Cosign(c.Request().Context(), CosignInput{
		NoteID:             id,
		UserID:             uid,
		Pin:                req.Pin,
		Password:           req.Password,
		SupervisorComments: req.SupervisorComments,
		IPAddress:          c.RealIP(),
		UserAgent:          c.Request().UserAgent(),
	})
	if err != nil {
		return err
	}
	return response.OK(c, n)
}

type returnForRevisionRequest struct {
	Comments        string   `json:"comments" validate:"required"`
	RequiredChanges []string `json:"requiredChanges" validate:"required"`
}

func (h *Handler) ReturnForRevision(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req returnForRevisionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	n, err := h.svc.ReturnForRevision(c.Request().Context(), uid, id, req.Comments, req.RequiredChanges)
	if err != nil {
		return err
	}
	return response.OK(c, n)
}

func (h *Handler) Resubmit(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	n, err := h.svc.Resubmit(c.Request().Context(), uid, id)
	if err != nil {
		return err
	}
	return response.OK(c, n)
}

func (h *Handler) SignatureEvents(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	events, err := h.svc.GetSignatureEvents(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.OK(c, events)
}

func (h *Handler) Stats(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}
	stats, err := h.svc.GetStats(c.Request().Context(), uid, auth.RolesFromContext(c.Request().Context()))
	if err != nil {
		return err
	}
	return response.OK(c, stats)
}

func (h *Handler) ListForCosigning(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return err
	}
	notes, err := h.svc.ListForCosigning(c.Request().Context(), uid, auth.RolesFromContext(c.Request().Context()))
	if err != nil {
		return err
	}
	return response.OK(c, notes)
}

func (h *Handler) TreatmentPlanStatus(c echo.Context) error {
	clientID, err := pathID(c, "clientId")
	if err != nil {
		return err
	}
	st, err := h.svc.TreatmentPlanStatus(c.Request().Context(), clientID)
	if err != nil {
		return err
	}
	return response.OK(c, st)
}
