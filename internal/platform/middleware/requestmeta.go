package middleware

import (
	"context"

	"github.com/labstack/echo/v4"
)

type metaKey string

const requestMetaKey metaKey = "request_meta"

// RequestMeta captures where a request came from. Audit entries record it
// alongside the acting user.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// RequestMetadata stores the client IP and user agent on the request
// context so lower layers can attach them to audit entries without
// threading HTTP types through service signatures.
func RequestMetadata() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			meta := RequestMeta{
				IPAddress: c.RealIP(),
				UserAgent: c.Request().UserAgent(),
			}
			ctx := context.WithValue(c.Request().Context(), requestMetaKey, meta)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// RequestMetaFromContext returns the request metadata, or a zero value when
// the call did not originate from an HTTP request.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey).(RequestMeta)
	return meta
}
