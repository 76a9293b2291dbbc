package controllers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/datallboy/gofm/internal/app"
	"github.com/datallboy/gofm/internal/fsroot"
	"github.com/labstack/echo/v5"
)

const (
	ViewPrefix     = "/api/view"
	DownloadPrefix = "/api/download"
	ListPrefix     = "/api/list"
	InfoPrefix     = "/api/info"
	UploadPrefix   = "/api/upload"

	// room for multipart boundaries and headers on top of the file itself
	multipartOverhead = 1 << 20
)

type FileController struct {
	App *app.Context
}

// resolve turns the part of the request path after prefix into a
// root-relative path. URL.Path is already unescaped.
func (ctrl *FileController) resolve(c *echo.Context, prefix string) (fsroot.SafePath, error) {
	raw := strings.TrimPrefix(c.Request().URL.Path, prefix)
	return ctrl.App.Paths.Resolve(raw)
}

// View streams a file inline, honouring Range
func (ctrl *FileController) View(c *echo.Context) error {
	return ctrl.serveFile(c, ViewPrefix, false)
}

// Download streams a file as an attachment
func (ctrl *FileController) Download(c *echo.Context) error {
	return ctrl.serveFile(c, DownloadPrefix, true)
}

func (ctrl *FileController) serveFile(c *echo.Context, prefix string, attachment bool) error {
	p, err := ctrl.resolve(c, prefix)
	if err != nil {
		return ctrl.errorFor(c, err, "File not found")
	}

	req := c.Request()
	resp, err := ctrl.App.Streams.Prepare(req.Context(), p, req.Header.Get("Range"))
	if err != nil {
		return ctrl.errorFor(c, err, "File not found")
	}

	if attachment {
		resp.Header.Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": p.Name()}))
	}

	// Headers are committed inside Serve, past that point the engine
	// logs failures itself and there is no response left to shape.
	_ = ctrl.App.Streams.Serve(req.Context(), c.Response(), resp, req.Method == http.MethodHead)
	return nil
}

// List returns the sorted contents of a directory
func (ctrl *FileController) List(c *echo.Context) error {
	p, err := ctrl.resolve(c, ListPrefix)
	if err != nil {
		return ctrl.errorFor(c, err, "Path not found")
	}

	listing, err := ctrl.App.Files.List(c.Request().Context(), p)
	if err != nil {
		return ctrl.errorFor(c, err, "Path not found")
	}
	return c.JSON(http.StatusOK, listing)
}

// Info returns metadata for a single file or directory
func (ctrl *FileController) Info(c *echo.Context) error {
	p, err := ctrl.resolve(c, InfoPrefix)
	if err != nil {
		return ctrl.errorFor(c, err, "File not found")
	}

	info, err := ctrl.App.Files.Stat(p)
	if err != nil {
		return ctrl.errorFor(c, err, "File not found")
	}
	return c.JSON(http.StatusOK, info)
}

// Upload stores the multipart "file" field in the target directory.
// The part is streamed straight to disk, never buffered whole.
func (ctrl *FileController) Upload(c *echo.Context) error {
	dir, err := ctrl.resolve(c, UploadPrefix)
	if err != nil {
		return ctrl.errorFor(c, err, "Directory not found")
	}

	req := c.Request()
	if limit := ctrl.App.Config.Upload.MaxBytes; limit > 0 {
		req.Body = http.MaxBytesReader(c.Response(), req.Body, limit+multipartOverhead)
	}

	mr, err := req.MultipartReader()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Expected multipart/form-data")
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return echo.NewHTTPError(http.StatusBadRequest, "Missing file field")
		}
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return ctrl.errorFor(c, err, "")
			}
			return echo.NewHTTPError(http.StatusBadRequest, "Malformed multipart body")
		}

		if part.FormName() != "file" {
			part.Close()
			continue
		}

		res, err := ctrl.App.Uploads.Save(req.Context(), dir, part.FileName(), part)
		part.Close()
		if err != nil {
			return ctrl.errorFor(c, err, "Directory not found")
		}

		ctrl.App.Logger.Info("Uploaded %s (%d bytes)", res.Path, res.Size)
		return c.JSON(http.StatusOK, res)
	}
}
