package api

import (
	"github.com/datallboy/gofm/internal/api/controllers"
	"github.com/datallboy/gofm/internal/app"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
)

func RegisterRoutes(e *echo.Echo, app *app.Context) {

	e.Use(middleware.Recover())

	// Middleware: Request Logger
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c *echo.Context, v middleware.RequestLoggerValues) error {
			app.Logger.Info("%s %s | %d | %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	files := &controllers.FileController{App: app}
	ui := &controllers.FrontendController{}

	// Streaming, Range aware
	e.GET(controllers.ViewPrefix+"/*", files.View)
	e.HEAD(controllers.ViewPrefix+"/*", files.View)
	e.GET(controllers.DownloadPrefix+"/*", files.Download)

	// Browsing
	e.GET(controllers.ListPrefix, files.List)
	e.GET(controllers.ListPrefix+"/*", files.List)
	e.GET(controllers.InfoPrefix, files.Info)
	e.GET(controllers.InfoPrefix+"/*", files.Info)

	e.POST(controllers.UploadPrefix, files.Upload)
	e.POST(controllers.UploadPrefix+"/*", files.Upload)

	// Anything else is the browser frontend
	e.GET("/", ui.Handle)
	e.GET("/*", ui.Handle)
}
