// Package web holds shared HTTP response helpers for the API handlers.
package web

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/heartcare/heartcare/pkg/apperr"
)

// ErrorResponse is the uniform error body returned by every handler.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

// Error writes err as a JSON error response, translating the error kind
// into a status code. Storage failures are logged with their cause and
// returned as an opaque 500.
func Error(c echo.Context, err error) error {
	var e *apperr.Error
	if !errors.As(err, &e) {
		log.Error().Err(err).Msg("unhandled error")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}

	switch e.Kind {
	case apperr.KindValidation:
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: e.Msg, Fields: e.Fields})
	case apperr.KindNotFound:
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: e.Msg})
	case apperr.KindConflict:
		return c.JSON(http.StatusConflict, ErrorResponse{Error: e.Msg})
	case apperr.KindAuth:
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: e.Msg})
	case apperr.KindStorage:
		log.Error().Err(e.Unwrap()).Str("op", e.Msg).Msg("storage failure")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	default:
		log.Error().Err(err).Msg("unhandled error")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
