package signature

import (
	"net/http"

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
	g := api.Group("", auth.RequireRole(auth.RoleClinician, auth.RoleSupervisor))
	g.PUT("/users/me/signature-pin", h.SetPin)
	g.PUT("/users/me/signature-password", h.SetPassword)
	g.GET("/users/me/attestation", h.GetAttestation)

	api.POST("/signature-events/:id/revoke", h.Revoke, auth.RequireRole(auth.RoleAdministrator))
}

type setPinRequest struct {
	Pin string `json:"pin" validate:"required"`
}

func (h *Handler) SetPin(c echo.Context) error {
	uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	var req setPinRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetSignaturePin(c.Request().Context(), uid, req.Pin); err != nil {
		return err
	}
	return response.OKMessage(c, "Signature PIN updated")
}

type setPasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

func (h *Handler) SetPassword(c echo.Context) error {
	uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	var req setPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetSignaturePassword(c.Request().Context(), uid, req.Password); err != nil {
		return err
	}
	return response.OKMessage(c, "Signature password updated")
}

// GetAttestation previews the attestation text the caller would sign
// under, so the frontend can display it before the signing dialog.
func (h *Handler) GetAttestation(c echo.Context) error {
	uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	noteType := c.QueryParam("noteType")
	if noteType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "noteType query parameter is required")
	}
	signatureType := c.QueryParam("signatureType")
	if signatureType == "" {
		signatureType = TypeAuthor
	}

	a, err := h.svc.GetApplicableAttestation(c.Request().Context(), uid, noteType, signatureType)
	if err != nil {
		return err
	}
	return response.OK(c, a)
}

type revokeRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *Handler) Revoke(c echo.Context) error {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
	}
	var req revokeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	e, err := h.svc.RevokeSignature(c.Request().Context(), eventID, uid, req.Reason)
	if err != nil {
		return err
	}
	return response.OK(c, e)
}
