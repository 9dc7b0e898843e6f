// handlers/contact.go - Contact form and newsletter capture
package handlers

import (
	"teetime/services"
	"teetime/utils"

	"github.com/gofiber/fiber/v2"
)

// SubmitContact stores a contact message and forwards it
// POST /api/contact
func SubmitContact(c *fiber.Ctx) error {
	var req services.ContactInput
	if err := parseBody(c, &req); err != nil {
		return handleError(c, err)
	}
	if _, err := contactService.Submit(c.UserContext(), req); err != nil {
		return handleError(c, err)
	}
	return utils.JSONStatus(c, fiber.StatusCreated, fiber.Map{"message": "Thanks, we'll be in touch"})
}

// Subscribe records an email address
// POST /api/subscribe
func Subscribe(c *fiber.Ctx) error {
	var req services.SubscribeInput
	if err := parseBody(c, &req); err != nil {
		return handleError(c, err)
	}
	if err := contactService.Subscribe(c.UserContext(), req); err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"message": "Subscribed"})
}
