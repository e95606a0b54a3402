package renderer

import (
	"io"
	"net/http"

	"github.com/damacus/iron-dav/internal/models"
	"github.com/damacus/iron-dav/internal/propfind"
	"github.com/labstack/echo/v4"
)

// Multistatus is the template name handlers pass to c.Render for PROPFIND bodies
const Multistatus = "multistatus"

// MultistatusData is the payload rendered under the Multistatus name
type MultistatusData struct {
	Bucket string
	Key    string
	View   models.MetadataView
}

type renderFunc func(w io.Writer, data interface{}) error

// DAVRenderer implements echo.Renderer for WebDAV XML bodies
type DAVRenderer struct {
	Templates map[string]renderFunc
}

// New creates a DAVRenderer with every known document registered
func New() *DAVRenderer {
	return &DAVRenderer{
		Templates: map[string]renderFunc{
			Multistatus: renderMultistatus,
		},
	}
}

func renderMultistatus(w io.Writer, data interface{}) error {
	d, ok := data.(MultistatusData)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "multistatus: unexpected data")
	}
	_, err := io.WriteString(w, propfind.Render(d.Bucket, d.Key, d.View))
	return err
}

// Render renders a named document
func (t *DAVRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	fn, ok := t.Templates[name]
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "Template not found: "+name)
	}
	return fn(w, data)
}
