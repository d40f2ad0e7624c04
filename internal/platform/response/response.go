// Package response implements the JSON envelope the frontend depends on:
// { success, data?, message?, errorCode?, errorId? }, with paginated
// lists additionally carrying { pagination: { page, limit, total,
// totalPages } }.
package response

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mentalspace/ehr/internal/platform/apperror"
)

// Envelope is the uniform response body.
type Envelope struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
	ErrorCode  string      `json:"errorCode,omitempty"`
	ErrorID    string      `json:"errorId,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination describes a page of a list response.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes totalPages from total and limit.
func NewPagination(page, limit, total int) *Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return &Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// OK writes a 200 envelope.
func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 envelope.
func Created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// OKMessage writes a 200 envelope with a message and no data.
func OKMessage(c echo.Context, message string) error {
	return c.JSON(http.StatusOK, Envelope{Success: true, Message: message})
}

// Paginated writes a 200 envelope with a pagination block.
func Paginated(c echo.Context, data interface{}, page, limit, total int) error {
	return c.JSON(http.StatusOK, Envelope{
		Success:    true,
		Data:       data,
		Pagination: NewPagination(page, limit, total),
	})
}

var kindToStatus = map[apperror.Kind]int{
	apperror.KindBadRequest:   http.StatusBadRequest,
	apperror.KindUnauthorized: http.StatusUnauthorized,
	apperror.KindForbidden:    http.StatusForbidden,
	apperror.KindNotFound:     http.StatusNotFound,
	apperror.KindConflict:     http.StatusConflict,
	apperror.KindInternal:     http.StatusInternalServerError,
}

var kindToCode = map[apperror.Kind]string{
	apperror.KindBadRequest:   "BAD_REQUEST",
	apperror.KindUnauthorized: "UNAUTHORIZED",
	apperror.KindForbidden:    "FORBIDDEN",
	apperror.KindNotFound:     "NOT_FOUND",
	apperror.KindConflict:     "CONFLICT",
	apperror.KindInternal:     "INTERNAL_ERROR",
}

var statusToCode = map[int]string{
	http.StatusBadRequest:          "BAD_REQUEST",
	http.StatusUnauthorized:        "UNAUTHORIZED",
	http.StatusForbidden:           "FORBIDDEN",
	http.StatusNotFound:            "NOT_FOUND",
	http.StatusConflict:            "CONFLICT",
	http.StatusInternalServerError: "INTERNAL_ERROR",
}

// ErrorHandler returns an echo.HTTPErrorHandler that renders every error
// through the envelope. Service errors (apperror) keep their messages;
// unclassified errors get a generic message plus an errorId that is also
// written to the log so operators can correlate.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := "internal server error"
		code := "INTERNAL_ERROR"

		if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			}
			if mapped, ok := statusToCode[status]; ok {
				code = mapped
			} else {
				code = http.StatusText(status)
			}
		} else if kind := apperror.KindOf(err); kind != apperror.KindInternal {
			status = kindToStatus[kind]
			message = apperror.MessageOf(err)
			code = kindToCode[kind]
		}

		env := Envelope{Success: false, Message: message, ErrorCode: code}
		if status >= http.StatusInternalServerError {
			env.ErrorID = uuid.New().String()
			rid, _ := c.Get("request_id").(string)
			logger.Error().
				Err(err).
				Str("request_id", rid).
				Str("error_id", env.ErrorID).
				Str("path", c.Request().URL.Path).
				Msg("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, env)
	}
}
