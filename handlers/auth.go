// handlers/auth.go - Registration, login and password reset
package handlers

import (
	"teetime/services"
	"teetime/utils"

	"github.com/gofiber/fiber/v2"
)

// Register creates an account and returns a session
// POST /api/auth/register
func Register(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := parseBody(c, &req); err != nil {
		return handleError(c, err)
	}

	session, err := authService.Register(c.UserContext(), req)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONStatus(c, fiber.StatusCreated, fiber.Map{
		"token": session.Token,
		"user":  session.User,
	})
}

// Login checks credentials and returns a session
// POST /api/auth/login
func Login(c *fiber.Ctx) error {
	var req services.LoginInput
	if err := parseBody(c, &req); err != nil {
		return handleError(c, err)
	}

	session, err := authService.Login(c.UserContext(), req)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{
		"token": session.Token,
		"user":  session.User,
	})
}

// ForgotPassword queues a reset link. The response never reveals whether
// the address has an account.
// POST /api/auth/forgot-password
func ForgotPassword(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := parseBody(c, &req); err != nil {
		return handleError(c, err)
	}

	if err := authService.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{
		"message": "If an account exists for that email, a reset link has been sent",
	})
}

// ResetPassword sets a new password from a reset token
// POST /api/auth/reset-password
func ResetPassword(c *fiber.Ctx) error {
	var req services.ResetPasswordInput
	if err := parseBody(c, &req); err != nil {
		return handleError(c, err)
	}

	if err := authService.ResetPassword(c.UserContext(), req); err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"message": "Password updated"})
}
