// handlers/chat.go - Match chat over HTTP and the live relay
package handlers

import (
	"context"

	"teetime/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// GetChatMessages returns chat history, oldest first
// GET /api/matches/:id/chat?limit=&before=
func GetChatMessages(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	matchID, err := paramID(c, "id", "match")
	if err != nil {
		return handleError(c, err)
	}
	before := utils.QueryInt(c, "before", 0)
	if before < 0 {
		before = 0
	}

	msgs, err := chatService.Messages(c.UserContext(), userID, matchID, utils.QueryInt(c, "limit", 50), uint(before))
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"messages": msgs})
}

// PostChatMessage stores a message and pushes it to the live room
// POST /api/matches/:id/chat
func PostChatMessage(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	matchID, err := paramID(c, "id", "match")
	if err != nil {
		return handleError(c, err)
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := parseBody(c, &req); err != nil {
		return handleError(c, err)
	}

	msg, err := chatService.Post(c.UserContext(), userID, matchID, req.Content)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONStatus(c, fiber.StatusCreated, fiber.Map{"message": msg})
}

// ================== WEBSOCKET ==================

// RequireUpgrade rejects plain HTTP requests to the socket endpoint.
func RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// ChatSocket hands an authenticated connection to the hub. Connections
// close when ctx is cancelled.
// GET /ws
func ChatSocket(ctx context.Context) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userId").(uint)
		name, _ := conn.Locals("userName").(string)
		if userID == 0 {
			_ = conn.Close()
			return
		}
		hub.Serve(ctx, conn, userID, name)
	})
}
