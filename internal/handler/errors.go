package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/chinor-crm/internal/booking"
	"github.com/iliyamo/chinor-crm/internal/service"
)

// statusOf maps a service error to an HTTP status and the detail shown to
// the client.  Unknown errors are 500 with a generic detail.
func statusOf(err error) (int, string) {
	var (
		ve *service.ValidationError
		nf *service.NotFoundError
		ce *service.ConflictError
		te *booking.TransitionError
		he *echo.HTTPError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Msg
	case errors.As(err, &nf):
		return http.StatusNotFound, nf.Error()
	case errors.As(err, &ce):
		return http.StatusConflict, ce.Msg
	case errors.As(err, &te):
		return http.StatusConflict, te.Error()
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Incorrect email or password"
	case errors.As(err, &he):
		if msg, ok := he.Message.(string); ok {
			return he.Code, msg
		}
		return he.Code, http.StatusText(he.Code)
	}
	return http.StatusInternalServerError, "Internal server error"
}

// ErrorHandler renders every error returned by a handler as
// {"detail": "..."}.  Server errors are logged.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code, detail := statusOf(err)
		if code >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Error(err))
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, echo.Map{"detail": detail})
		}
		if err != nil {
			log.Warn("write error response", zap.Error(err))
		}
	}
}
