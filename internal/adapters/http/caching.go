package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// cacheRule assigns a Cache-Control value to the paths it matches.
type cacheRule struct {
	exact  string
	prefix string
	value  string
}

func (r cacheRule) matches(path string) bool {
	if r.exact != "" {
		return path == r.exact
	}
	return strings.HasPrefix(path, r.prefix)
}

// cacheRules are checked in order; the first match wins.
var cacheRules = []cacheRule{
	{exact: "/v1/health", value: "public, max-age=10"},
	{exact: "/v1/ready", value: "public, max-age=10"},
	{exact: "/metrics", value: "no-cache"},
	{exact: "/v1/workflows", value: "public, max-age=3600"}, // fixed at startup
	{exact: "/v1/scans", value: "no-cache"},                 // new runs arrive at any time
	{prefix: "/v1/scans/", value: "public, max-age=3600"},   // runs are immutable once written
	{prefix: "/v1/", value: "public, max-age=60"},
}

// cacheControlFor returns the Cache-Control value for path, or "".
func cacheControlFor(path string) string {
	for _, r := range cacheRules {
		if r.matches(path) {
			return r.value
		}
	}
	return ""
}

// CachingMiddleware sets Cache-Control on successful GET responses unless the
// handler already set one.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet || c.Response().StatusCode() >= 400 {
			return err
		}
		if c.GetRespHeader(fiber.HeaderCacheControl) != "" {
			return err
		}
		if v := cacheControlFor(c.Path()); v != "" {
			c.Set(fiber.HeaderCacheControl, v)
		}
		return err
	}
}
