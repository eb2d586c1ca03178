package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Version is reported by /v1/health; overridden at link time.
var Version = "dev"

// readinessCheck probes one backing service. Only required checks gate
// readiness; the others are reported for visibility.
type readinessCheck struct {
	name     string
	required bool
	probe    func(ctx context.Context) string
}

func pingProbe(p Pinger) func(ctx context.Context) string {
	return func(ctx context.Context) string {
		if p == nil {
			return "not configured"
		}
		if err := p.Ping(ctx); err != nil {
			return "error: " + err.Error()
		}
		return "ok"
	}
}

func readinessChecks(deps *Dependencies) []readinessCheck {
	return []readinessCheck{
		{name: "database", required: true, probe: pingProbe(deps.DB)},
		{name: "cache", probe: pingProbe(deps.Cache)},
		{name: "nats", probe: func(context.Context) string {
			switch {
			case deps.NATS == nil:
				return "not configured"
			case deps.NATS.IsConnected():
				return "ok"
			default:
				return "disconnected"
			}
		}},
	}
}

// HealthHandler is the liveness probe. It never touches backing services.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		workflows := []string{}
		if deps.Validation != nil {
			workflows = deps.Validation.Workflows()
		}
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"uptime":    time.Since(startedAt).Round(time.Second).String(),
			"version":   Version,
			"workflows": workflows,
		})
	}
}

// ReadyHandler reports 503 while any required backing service is unreachable.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	checks := readinessChecks(deps)

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		results := make(map[string]string, len(checks))
		ready := true
		for _, chk := range checks {
			res := chk.probe(ctx)
			results[chk.name] = res
			if chk.required && res != "ok" {
				ready = false
			}
		}

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready", "checks": results})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": results})
	}
}
