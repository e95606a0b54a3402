package handlers

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/damacus/iron-dav/internal/metrics"
	"github.com/damacus/iron-dav/internal/models"
	"github.com/damacus/iron-dav/internal/renderer"
	"github.com/damacus/iron-dav/internal/services"
	"github.com/damacus/iron-dav/internal/utils"
	"github.com/labstack/echo/v4"
)

// Options tunes WebDAV behaviour. Fixed for the process lifetime.
type Options struct {
	// DefaultBucket serves requests addressed to "/"
	DefaultBucket string
	// MaxUploadSize caps PUT bodies in bytes; zero disables the limit
	MaxUploadSize int64
	// StrictMkcol adds the RFC 4918 parent and existing-resource checks
	StrictMkcol bool
	// Quota reports RFC 4331 properties on bucket roots
	Quota             bool
	DeleteConcurrency int
}

type WebDAVHandler struct {
	provider services.ClientProvider
	opts     Options
	metrics  *metrics.Metrics
}

func NewWebDAVHandler(provider services.ClientProvider, opts Options, m *metrics.Metrics) *WebDAVHandler {
	return &WebDAVHandler{provider: provider, opts: opts, metrics: m}
}

// Serve dispatches one WebDAV request by verb
func (h *WebDAVHandler) Serve(c echo.Context) error {
	method, ok := ParseMethod(c.Request().Method)
	if !ok {
		return echo.ErrMethodNotAllowed
	}

	bucket, key := splitPath(c.Request().URL.Path)
	if bucket == "" {
		bucket = h.opts.DefaultBucket
	}
	if bucket == "" && method != MethodOptions {
		return echo.NewHTTPError(http.StatusNotFound, "No bucket")
	}

	switch method {
	case MethodGet:
		return h.get(c, bucket, key)
	case MethodHead:
		return h.head(c)
	case MethodPut:
		return h.put(c, bucket, key)
	case MethodDelete:
		return h.delete(c, bucket, key)
	case MethodOptions:
		return h.options(c)
	case MethodPropfind:
		return h.propfind(c, bucket, key)
	case MethodMkcol:
		return h.mkcol(c, bucket, key)
	case MethodCopy, MethodMove:
		return h.fail(c, method, bucket, key, services.ErrNotImplemented)
	}
	return echo.ErrMethodNotAllowed
}

// translator resolves the backend handle for this request
func (h *WebDAVHandler) translator(c echo.Context) (*services.ObjectTranslator, error) {
	client, err := h.provider.Resolve(GetCredentials(c))
	if err != nil {
		return nil, err
	}
	return services.NewObjectTranslator(client, h.opts.DeleteConcurrency), nil
}

// fail logs err and turns it into the HTTP error the client sees
func (h *WebDAVHandler) fail(c echo.Context, method Method, bucket, key string, err error) error {
	status, reason := statusFor(err)
	attrs := []any{
		"method", method.String(),
		"bucket", bucket,
		"key", key,
		"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		"err", err,
	}
	switch {
	case status >= http.StatusInternalServerError && status != http.StatusNotImplemented:
		h.metrics.BackendError(errorKind(err))
		slog.WarnContext(c.Request().Context(), "backend request failed", attrs...)
	case status == http.StatusUnauthorized:
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Basic realm="`+utils.AuthRealm+`"`)
	default:
		slog.DebugContext(c.Request().Context(), "request rejected", attrs...)
	}
	return echo.NewHTTPError(status, reason)
}

func (h *WebDAVHandler) get(c echo.Context, bucket, key string) error {
	tr, err := h.translator(c)
	if err != nil {
		return h.fail(c, MethodGet, bucket, key, err)
	}
	if key == "" {
		return h.fail(c, MethodGet, bucket, key, services.ErrNotFound)
	}

	body, meta, err := tr.Fetch(c.Request().Context(), bucket, key)
	if err != nil {
		return h.fail(c, MethodGet, bucket, key, err)
	}
	defer func() { _ = body.Close() }()

	header := c.Response().Header()
	header.Set(echo.HeaderContentLength, strconv.FormatInt(meta.Size, 10))
	if meta.ETag != "" {
		header.Set("ETag", strconv.Quote(meta.ETag))
	}
	if !meta.LastModified.IsZero() {
		header.Set(echo.HeaderLastModified, meta.LastModified.UTC().Format(http.TimeFormat))
	}

	cr := &countingReader{r: body}
	err = c.Stream(http.StatusOK, meta.ContentType, cr)
	h.metrics.AddBytes("download", cr.n)
	return err
}

// head answers 200 without touching the backend
func (h *WebDAVHandler) head(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (h *WebDAVHandler) put(c echo.Context, bucket, key string) error {
	if key == "" || strings.HasSuffix(key, "/") {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot PUT a collection")
	}

	req := c.Request()
	size := req.ContentLength
	limit := h.opts.MaxUploadSize
	if limit > 0 && size > limit {
		return h.fail(c, MethodPut, bucket, key, services.ErrPayloadTooLarge)
	}

	tr, err := h.translator(c)
	if err != nil {
		return h.fail(c, MethodPut, bucket, key, err)
	}

	body := req.Body
	if limit > 0 {
		body = http.MaxBytesReader(c.Response(), body, limit)
	}
	cr := &countingReader{r: body}

	contentType := req.Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = contentTypeFromExt(key)
	}

	etag, err := tr.Put(req.Context(), bucket, key, cr, size, contentType)
	if err != nil {
		if cr.exceededLimit() {
			err = services.ErrPayloadTooLarge
		}
		return h.fail(c, MethodPut, bucket, key, err)
	}
	h.metrics.AddBytes("upload", cr.n)

	header := c.Response().Header()
	header.Set("ETag", strconv.Quote(etag))
	header.Set(echo.HeaderLocation, "/"+bucket+"/"+key)
	return c.NoContent(http.StatusCreated)
}

func (h *WebDAVHandler) delete(c echo.Context, bucket, key string) error {
	if key == "" {
		return h.fail(c, MethodDelete, bucket, key, services.ErrForbidden)
	}

	tr, err := h.translator(c)
	if err != nil {
		return h.fail(c, MethodDelete, bucket, key, err)
	}

	ctx := c.Request().Context()
	if tr.IsCollection(ctx, bucket, key) {
		if err := tr.DeleteTree(ctx, bucket, services.CollectionPrefix(key)); err != nil {
			return h.fail(c, MethodDelete, bucket, key, err)
		}
	}
	exact := strings.TrimSuffix(key, "/")
	if err := tr.Delete(ctx, bucket, exact); err != nil {
		return h.fail(c, MethodDelete, bucket, key, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *WebDAVHandler) options(c echo.Context) error {
	header := c.Response().Header()
	header.Set("DAV", "1")
	header.Set(echo.HeaderAllow, allowHeader)
	header.Set("MS-Author-Via", "DAV")
	return c.NoContent(http.StatusOK)
}

func (h *WebDAVHandler) propfind(c echo.Context, bucket, key string) error {
	tr, err := h.translator(c)
	if err != nil {
		return h.fail(c, MethodPropfind, bucket, key, err)
	}

	ctx := c.Request().Context()
	var view models.MetadataView
	href := key

	if tr.IsCollection(ctx, bucket, key) {
		prefix := services.CollectionPrefix(key)
		listing, err := tr.List(ctx, bucket, prefix, "/")
		if err != nil {
			return h.fail(c, MethodPropfind, bucket, key, notFoundUnlessAuth(err))
		}
		listing.SelfOnly = c.Request().Header.Get("Depth") == "0"
		if prefix == "" && h.opts.Quota {
			listing.Quota = h.quota(c, bucket)
		}
		view = models.CollectionView(listing)
		href = prefix
	} else {
		meta, err := tr.MetadataSingle(ctx, bucket, key)
		if err != nil {
			return h.fail(c, MethodPropfind, bucket, key, notFoundUnlessAuth(err))
		}
		view = models.SingleView(meta)
	}

	r := c.Echo().Renderer
	if r == nil {
		return echo.ErrRendererNotRegistered
	}
	var buf bytes.Buffer
	data := renderer.MultistatusData{Bucket: bucket, Key: href, View: view}
	if err := r.Render(&buf, renderer.Multistatus, data, c); err != nil {
		return err
	}
	return c.Blob(http.StatusMultiStatus, "application/xml; charset=utf-8", buf.Bytes())
}

// notFoundUnlessAuth collapses PROPFIND lookup failures to NotFound while
// keeping rejected credentials visible as 401
func notFoundUnlessAuth(err error) error {
	if errors.Is(err, services.ErrAuthenticationRequired) || errors.Is(err, services.ErrNotFound) {
		return err
	}
	return errors.Join(services.ErrNotFound, err)
}

// quota is best effort; the listing is served without it on any failure
func (h *WebDAVHandler) quota(c echo.Context, bucket string) *models.Quota {
	ctx := c.Request().Context()
	admin, err := h.provider.ResolveAdmin(GetCredentials(c))
	if err != nil {
		slog.DebugContext(ctx, "quota unavailable", "bucket", bucket, "err", err)
		return nil
	}
	q, err := admin.BucketQuota(ctx, bucket)
	if err != nil {
		slog.DebugContext(ctx, "quota lookup failed", "bucket", bucket, "err", err)
		return nil
	}
	return &q
}

func (h *WebDAVHandler) mkcol(c echo.Context, bucket, key string) error {
	if key == "" {
		return h.fail(c, MethodMkcol, bucket, key, services.ErrConflict)
	}

	tr, err := h.translator(c)
	if err != nil {
		return h.fail(c, MethodMkcol, bucket, key, err)
	}

	ctx := c.Request().Context()
	exists, err := tr.PrefixExists(ctx, bucket, services.CollectionPrefix(key))
	if err != nil {
		return h.fail(c, MethodMkcol, bucket, key, err)
	}
	if exists {
		return h.fail(c, MethodMkcol, bucket, key, services.ErrConflict)
	}

	if h.opts.StrictMkcol {
		name := strings.TrimSuffix(key, "/")
		_, err := tr.MetadataSingle(ctx, bucket, name)
		if err == nil {
			return h.fail(c, MethodMkcol, bucket, key, services.ErrConflict)
		}
		if !errors.Is(err, services.ErrNotFound) {
			return h.fail(c, MethodMkcol, bucket, key, err)
		}
		if parent := path.Dir(name); parent != "." && !tr.IsCollection(ctx, bucket, parent) {
			return h.fail(c, MethodMkcol, bucket, key, services.ErrConflict)
		}
	}

	if err := tr.MakeCollection(ctx, bucket, key); err != nil {
		return h.fail(c, MethodMkcol, bucket, key, err)
	}
	return c.NoContent(http.StatusNoContent)
}
