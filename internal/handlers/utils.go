package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/damacus/iron-dav/internal/services"
	"github.com/damacus/iron-dav/internal/utils"
	"github.com/labstack/echo/v4"
)

// GetCredentials returns the Basic-Auth pair stored by the credentials
// middleware, or nil when the request carried none
func GetCredentials(c echo.Context) *services.Credentials {
	creds, ok := c.Get(utils.ContextKeyCreds).(*services.Credentials)
	if !ok {
		return nil
	}
	return creds
}

// splitPath turns the decoded request path into bucket and key.
// "/docs" and "/docs/" both address the bucket root.
func splitPath(urlPath string) (bucket, key string) {
	bucket, key, _ = strings.Cut(strings.TrimPrefix(urlPath, "/"), "/")
	return bucket, key
}

// statusFor maps the service error taxonomy to a status and a short reason.
// Backend detail never reaches the client.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrAuthenticationRequired):
		return http.StatusUnauthorized, "Authentication required"
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, services.ErrPayloadTooLarge):
		return http.StatusBadRequest, "Request body too large"
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, services.ErrNotImplemented):
		return http.StatusNotImplemented, "Not implemented"
	default:
		return http.StatusInternalServerError, "Backend error"
	}
}

// errorKind labels an error for the backend error counter
func errorKind(err error) string {
	switch {
	case errors.Is(err, services.ErrAuthenticationRequired):
		return "auth"
	case errors.Is(err, services.ErrNotFound):
		return "not_found"
	case errors.Is(err, services.ErrConflict):
		return "conflict"
	case errors.Is(err, services.ErrPayloadTooLarge):
		return "too_large"
	default:
		return "backend"
	}
}

// countingReader tracks bytes read and keeps the last read error, which
// drivers may not wrap when they fail an upload
type countingReader struct {
	r   io.Reader
	n   int64
	err error
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	if err != nil && err != io.EOF {
		cr.err = err
	}
	return n, err
}

func (cr *countingReader) exceededLimit() bool {
	var maxErr *http.MaxBytesError
	return errors.As(cr.err, &maxErr)
}

// contentTypeFromExt guesses a content type for uploads that did not send one
func contentTypeFromExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	types := map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".gif":  "image/gif",
		".webp": "image/webp",
		".svg":  "image/svg+xml",
		".txt":  "text/plain",
		".md":   "text/markdown",
		".json": "application/json",
		".xml":  "application/xml",
		".html": "text/html",
		".css":  "text/css",
		".js":   "application/javascript",
		".pdf":  "application/pdf",
		".mp4":  "video/mp4",
		".webm": "video/webm",
		".mp3":  "audio/mpeg",
		".zip":  "application/zip",
		".tar":  "application/x-tar",
		".gz":   "application/gzip",
	}
	return types[ext]
}
