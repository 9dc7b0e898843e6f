// handlers/profile.go - Own profile and public user profiles
package handlers

import (
	"teetime/services"
	"teetime/utils"

	"github.com/gofiber/fiber/v2"
)

// GetProfile returns the caller's profile
// GET /api/profile
func GetProfile(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	user, err := userService.Profile(c.UserContext(), userID)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"user": user})
}

// UpdateProfile changes name, handicap, zip, bio and email preferences
// PUT /api/profile
func UpdateProfile(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	var req services.UpdateProfileInput
	if err := parseBody(c, &req); err != nil {
		return handleError(c, err)
	}

	user, err := userService.UpdateProfile(c.UserContext(), userID, req)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"user": user})
}

// UploadAvatar replaces the caller's profile image
// POST /api/profile/avatar
func UploadAvatar(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	body, err := uploadedImage(c)
	if err != nil {
		return handleError(c, err)
	}

	user, err := userService.UploadAvatar(c.UserContext(), userID, body)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"user": user})
}

// GetUserProfile returns another user's public profile
// GET /api/users/:id
func GetUserProfile(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "user")
	if err != nil {
		return handleError(c, err)
	}
	profile, err := userService.PublicProfile(c.UserContext(), id)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"user": profile})
}

// SearchUsers finds users by name for invitations
// GET /api/users/search?q=
func SearchUsers(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	users, err := userService.Search(c.UserContext(), c.Query("q"), userID, utils.QueryInt(c, "limit", 10))
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"users": users})
}
