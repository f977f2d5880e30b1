package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/FilippTrigub/space-goose/internal/health"
)

// Liveness handles GET /healthz: the process is serving.
func (h *handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness handles GET /readyz. The control plane has no background
// reconciliation loop to gate on; readiness instead runs the
// registered dependency checks (metadata store, orchestrator) and reports
// not_ready if any dependency the control API needs is unreachable.
func (h *handlers) Readiness(c *fiber.Ctx) error {
	if h.checker == nil {
		return c.JSON(fiber.Map{"status": "ready"})
	}
	results := h.checker.RunAll(c.Context())
	status := fiber.StatusOK
	body := fiber.Map{"status": "ready", "checks": results}
	for _, s := range results {
		if s == health.StatusDown {
			status = fiber.StatusServiceUnavailable
			body["status"] = "not_ready"
			break
		}
	}
	return c.Status(status).JSON(body)
}
