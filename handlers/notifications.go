// handlers/notifications.go - Notification inbox
package handlers

import (
	"teetime/utils"

	"github.com/gofiber/fiber/v2"
)

// GetNotifications lists the caller's notifications, newest first
// GET /api/notifications?unread=true&limit=
func GetNotifications(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	ctx := c.UserContext()

	list, err := notificationService.List(ctx, userID, c.QueryBool("unread", false), utils.QueryInt(c, "limit", 50))
	if err != nil {
		return handleError(c, err)
	}
	unread, err := notificationService.UnreadCount(ctx, userID)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{
		"notifications": list,
		"unread_count":  unread,
	})
}

// GetUnreadCount returns the unread badge count
// GET /api/notifications/unread-count
func GetUnreadCount(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	count, err := notificationService.UnreadCount(c.UserContext(), userID)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"unread_count": count})
}

// MarkNotificationRead marks one notification read
// PUT /api/notifications/:id/read
func MarkNotificationRead(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	id, err := paramID(c, "id", "notification")
	if err != nil {
		return handleError(c, err)
	}

	if err := notificationService.MarkRead(c.UserContext(), userID, id); err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"message": "Notification marked as read"})
}

// MarkAllNotificationsRead marks every unread notification read
// PUT /api/notifications/read-all
func MarkAllNotificationsRead(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	n, err := notificationService.MarkAllRead(c.UserContext(), userID)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"updated": n})
}

// DeleteNotification removes one notification
// DELETE /api/notifications/:id
func DeleteNotification(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	id, err := paramID(c, "id", "notification")
	if err != nil {
		return handleError(c, err)
	}

	if err := notificationService.Delete(c.UserContext(), userID, id); err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"message": "Notification deleted"})
}
