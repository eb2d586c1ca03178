package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/tifprobe/internal/pkg/metrics"
)

const (
	apiVersion        = "1.0.0"
	docsSpecPath      = "api/openapi.yaml"
	readTimeout       = 15 * time.Second
	defaultScanBudget = 5 * time.Minute
	defaultRateLimit  = 120
)

// securityHeaders stamps every response with the hardening headers and the
// API version.
func securityHeaders() fiber.Handler {
	headers := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
		"X-API-Version":          apiVersion,
	}
	return func(c *fiber.Ctx) error {
		for k, v := range headers {
			c.Set(k, v)
		}
		return c.Next()
	}
}

// rateLimiter allows perMinute requests per client IP.
func rateLimiter(perMinute int) fiber.Handler {
	if perMinute <= 0 {
		perMinute = defaultRateLimit
	}
	return limiter.New(limiter.Config{
		Max:          perMinute,
		Expiration:   time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() },
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	})
}

// upgradeOnly rejects plain HTTP requests to the WebSocket endpoint.
func upgradeOnly(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// SetupRoutes installs the middleware chain and every REST, GraphQL,
// documentation and WebSocket route.
func SetupRoutes(app *fiber.App, deps *Dependencies, logger *slog.Logger) {
	app.Use(
		recover.New(),
		metrics.Middleware(),
	)
	app.Get("/metrics", metrics.Handler())

	app.Use(
		compress.New(compress.Config{Level: compress.LevelBestSpeed}),
		requestid.New(),
		RequestIDLogMiddleware(logger),
		AccessLogMiddleware(),
		rateLimiter(deps.RateLimit),
		securityHeaders(),
		ETagMiddleware(),
		CachingMiddleware(),
	)

	// Probes run without a timeout wrapper.
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	scanBudget := deps.ScanTimeout
	if scanBudget <= 0 {
		scanBudget = defaultScanBudget
	}

	v1 := app.Group("/v1")
	v1.Get("/workflows", WorkflowsHandler(deps))
	v1.Post("/scans", timeout.NewWithContext(CreateScanHandler(deps), scanBudget))
	v1.Get("/scans", timeout.NewWithContext(ListScansHandler(deps), readTimeout))
	v1.Get("/scans/:id", timeout.NewWithContext(GetScanHandler(deps), readTimeout))
	v1.Get("/scans/:id/samples", timeout.NewWithContext(ScanSamplesHandler(deps), readTimeout))

	app.Post("/graphql", GraphQLHandler(deps))
	SetupDocs(app, docsSpecPath)

	app.Use("/ws", upgradeOnly)
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS, logger)))
}
