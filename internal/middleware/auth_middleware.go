package middleware

import (
	"github.com/damacus/iron-dav/internal/services"
	"github.com/damacus/iron-dav/internal/utils"
	"github.com/labstack/echo/v4"
)

// BasicAuthCredentials copies the Basic-Auth pair of each request into the
// context for handlers to use. It never rejects a request: whether
// credentials are needed is decided by the client provider.
func BasicAuthCredentials() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, pass, ok := c.Request().BasicAuth()
			if ok {
				c.Set(utils.ContextKeyCreds, &services.Credentials{
					AccessKey: user,
					SecretKey: pass,
				})
			}
			return next(c)
		}
	}
}
