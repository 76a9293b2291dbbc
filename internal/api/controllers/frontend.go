package controllers

import (
	"net/http"

	"github.com/datallboy/gofm/internal/web"
	"github.com/labstack/echo/v5"
)

type FrontendController struct{}

// Handle serves the browser UI for every path outside /api; the page
// reads its location and asks the list endpoint for the rest.
func (ctrl *FrontendController) Handle(c *echo.Context) error {
	return c.Blob(http.StatusOK, web.ContentType, web.Index())
}
