package handler

import (
	"errors"
	"fmt"
	"net/http"

	jujuerrors "github.com/juju/errors"
	"github.com/labstack/echo/v4"

	"feedboard/domain"
)

type errorEnvelope struct {
	ErrMsg  string `json:"errMsg"`
	ErrData any    `json:"errData,omitempty"`
}

// HTTPErrorHandler maps the service error kinds to status codes and
// writes the uniform {errMsg, errData} envelope.
func HTTPErrorHandler(err error, c echo.Context) {
	envelope := errorEnvelope{ErrMsg: err.Error()}
	code := http.StatusInternalServerError

	var validation *domain.ValidationError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &validation):
		code = http.StatusUnprocessableEntity
		envelope.ErrMsg = validation.Msg
		envelope.ErrData = validation.Fields
	case errors.Is(err, jujuerrors.NotValid):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, jujuerrors.Unauthorized):
		code = http.StatusUnauthorized
	case errors.Is(err, jujuerrors.Forbidden):
		code = http.StatusForbidden
	case errors.Is(err, jujuerrors.NotFound):
		code = http.StatusNotFound
	case errors.As(err, &httpErr):
		// echo and the JWT middleware report through HTTPError.
		code = httpErr.Code
		envelope.ErrMsg = fmt.Sprintf("%v", httpErr.Message)
	}

	if code == http.StatusInternalServerError {
		c.Logger().Error(err)
	}
	if c.Response().Committed {
		return
	}
	if err := c.JSON(code, envelope); err != nil {
		c.Logger().Error(err)
	}
}
