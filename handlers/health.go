// handlers/health.go - Liveness and dependency status
package handlers

import (
	"time"

	"teetime/database"

	"github.com/gofiber/fiber/v2"
)

// Health reports database reachability and live connection counts
// GET /health
func Health(c *fiber.Ctx) error {
	status := "healthy"
	code := fiber.StatusOK

	dbStatus := "ok"
	if err := database.Ping(db); err != nil {
		dbStatus = "unreachable"
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}

	body := fiber.Map{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"database":  dbStatus,
	}
	if hub != nil {
		body["websocket_connections"] = hub.Connections()
	}
	if mailState != nil {
		body["mail_queue"] = mailState()
	}
	return c.Status(code).JSON(body)
}
