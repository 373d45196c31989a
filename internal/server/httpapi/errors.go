package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/feedvault/internal/common"
)

// statusFor maps a service error to the HTTP status it is reported with.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrorValidation),
		errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrorAlreadyExists),
		errors.Is(err, common.ErrUnknownPlan):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrInsufficientQuota),
		errors.Is(err, common.ErrWrongPortal),
		errors.Is(err, common.ErrUnauthorizedDevice),
		errors.Is(err, common.ErrorForbidden),
		errors.Is(err, common.ErrInvalidOrExpired):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound),
		errors.Is(err, common.ErrNotFoundOnDisk):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Message string `json:"message"`
}

// errorHandler answers every failed request with {"message": ...}. Internal
// errors are logged and reported without detail.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := statusFor(err)
	msg := err.Error()

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}

	if code >= http.StatusInternalServerError {
		s.log.Error(c.Request().Context(), "request failed", "method", c.Request().Method, "uri", c.Request().RequestURI, "error", err.Error())
		msg = http.StatusText(code)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorResponse{Message: msg})
	}
	if err != nil {
		s.log.Error(c.Request().Context(), "error writing error response", "error", err.Error())
	}
}
