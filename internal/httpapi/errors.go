package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"kasupel/internal/apierr"
)

// errorHandler renders every error echo sees as an apierr.JSON body,
// generalizing the teacher's bare Reason{string} (server/error.go) into the
// numeric taxonomy spec.md §7 requires.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var apiErr *apierr.Error
	switch e := err.(type) {
	case *apierr.Error:
		apiErr = e
	case *echo.HTTPError:
		apiErr = fromEchoError(e)
	default:
		logInternal(err)
		apiErr = apierr.Of(apierr.Internal)
	}
	if writeErr := c.JSON(apiErr.Status, apiErr.JSON()); writeErr != nil {
		logInternal(writeErr)
	}
}

func fromEchoError(e *echo.HTTPError) *apierr.Error {
	switch e.Code {
	case http.StatusNotFound:
		return apierr.Of(apierr.UnknownURL)
	case http.StatusBadRequest:
		return apierr.Of(apierr.WrongParameters)
	default:
		return apierr.Of(apierr.Internal)
	}
}
