package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/datallboy/gofm/internal/domain"
	"github.com/datallboy/gofm/internal/stream"
	"github.com/labstack/echo/v5"
)

// errorFor maps a service error onto the HTTP error echo renders. It
// returns nil for aborted transfers, there is nobody left to answer.
func (ctrl *FileController) errorFor(c *echo.Context, err error, notFound string) error {
	var rangeErr *stream.RangeError
	var maxErr *http.MaxBytesError

	switch {
	case errors.Is(err, stream.ErrTransportAborted):
		return nil
	case errors.As(err, &rangeErr):
		c.Response().Header().Set("Content-Range", fmt.Sprintf("bytes */%d", rangeErr.Size))
		return echo.NewHTTPError(http.StatusRequestedRangeNotSatisfiable, "Invalid range")
	case errors.Is(err, domain.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, notFound)
	case errors.Is(err, domain.ErrNotDirectory):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid directory")
	case errors.Is(err, domain.ErrInvalidPath):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid path")
	case errors.Is(err, domain.ErrInvalidFileName):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid file name")
	case errors.Is(err, domain.ErrTooLarge), errors.As(err, &maxErr):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Upload too large")
	}

	ctrl.App.Logger.Error("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
}
