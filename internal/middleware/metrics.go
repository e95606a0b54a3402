package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/damacus/iron-dav/internal/metrics"
	"github.com/labstack/echo/v4"
)

// OtherMethod labels requests whose verb is not in the served set
const OtherMethod = "OTHER"

// Metrics records method, status and latency of every request. Verbs outside
// methods are counted as OtherMethod.
func Metrics(m *metrics.Metrics, methods []string) echo.MiddlewareFunc {
	known := make(map[string]struct{}, len(methods))
	for _, name := range methods {
		known[name] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			code := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					code = he.Code
				} else {
					code = http.StatusInternalServerError
				}
			}
			method := c.Request().Method
			if _, ok := known[method]; !ok {
				method = OtherMethod
			}
			m.ObserveRequest(method, code, time.Since(start))
			return err
		}
	}
}
