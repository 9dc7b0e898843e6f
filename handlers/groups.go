// handlers/groups.go - Group HTTP Handlers
package handlers

import (
	"teetime/services"
	"teetime/utils"

	"github.com/gofiber/fiber/v2"
)

// ================== GROUP CRUD ENDPOINTS ==================

// CreateGroup creates a group and invites the listed users
// POST /api/groups
func CreateGroup(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	var req services.CreateGroupInput
	if err := parseBody(c, &req); err != nil {
		return handleError(c, err)
	}

	group, err := groupService.Create(c.UserContext(), userID, req)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONStatus(c, fiber.StatusCreated, fiber.Map{
		"message": "Group created successfully",
		"group":   group,
	})
}

// GetMyGroups lists groups the caller belongs to
// GET /api/groups
func GetMyGroups(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	groups, err := groupService.Mine(c.UserContext(), userID)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"groups": groups})
}

// GetGroup returns a group to one of its members
// GET /api/groups/:id
func GetGroup(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	groupID, err := paramID(c, "id", "group")
	if err != nil {
		return handleError(c, err)
	}

	group, err := groupService.Get(c.UserContext(), userID, groupID)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"group": group})
}

// UpdateGroup renames or redescribes a group
// PUT /api/groups/:id
func UpdateGroup(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	groupID, err := paramID(c, "id", "group")
	if err != nil {
		return handleError(c, err)
	}
	var req services.UpdateGroupInput
	if err := parseBody(c, &req); err != nil {
		return handleError(c, err)
	}

	group, err := groupService.Update(c.UserContext(), userID, groupID, req)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"group": group})
}

// DeleteGroup removes a group
// DELETE /api/groups/:id
func DeleteGroup(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	groupID, err := paramID(c, "id", "group")
	if err != nil {
		return handleError(c, err)
	}

	if err := groupService.Delete(c.UserContext(), userID, groupID); err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"message": "Group deleted"})
}

// UploadGroupIcon replaces the group icon
// POST /api/groups/:id/icon
func UploadGroupIcon(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	groupID, err := paramID(c, "id", "group")
	if err != nil {
		return handleError(c, err)
	}
	body, err := uploadedImage(c)
	if err != nil {
		return handleError(c, err)
	}

	group, err := groupService.UploadIcon(c.UserContext(), userID, groupID, body)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"group": group})
}

// ================== MEMBER ENDPOINTS ==================

// GetGroupMembers lists members
// GET /api/groups/:id/members
func GetGroupMembers(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	groupID, err := paramID(c, "id", "group")
	if err != nil {
		return handleError(c, err)
	}

	members, err := groupService.Members(c.UserContext(), userID, groupID)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"members": members})
}

// RemoveGroupMember removes a member (creator only)
// DELETE /api/groups/:id/members/:memberId
func RemoveGroupMember(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	groupID, err := paramID(c, "id", "group")
	if err != nil {
		return handleError(c, err)
	}
	memberID, err := paramID(c, "memberId", "member")
	if err != nil {
		return handleError(c, err)
	}

	if err := groupService.RemoveMember(c.UserContext(), userID, groupID, memberID); err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"message": "Member removed"})
}

// LeaveGroup removes the caller from a group
// POST /api/groups/:id/leave
func LeaveGroup(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	groupID, err := paramID(c, "id", "group")
	if err != nil {
		return handleError(c, err)
	}

	if err := groupService.Leave(c.UserContext(), userID, groupID); err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"message": "You have left the group"})
}

// ================== INVITATION ENDPOINTS ==================

// InviteToGroup invites users to a group
// POST /api/groups/:id/invitations
func InviteToGroup(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	groupID, err := paramID(c, "id", "group")
	if err != nil {
		return handleError(c, err)
	}
	var req struct {
		UserIDs []uint `json:"user_ids"`
	}
	if err := parseBody(c, &req); err != nil {
		return handleError(c, err)
	}

	result, err := groupService.Invite(c.UserContext(), userID, groupID, req.UserIDs)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{
		"invited": result.Invited,
		"skipped": result.Skipped,
	})
}

// GetMyInvitations lists the caller's pending invitations
// GET /api/groups/invitations
func GetMyInvitations(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	invitations, err := groupService.Invitations(c.UserContext(), userID)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"invitations": invitations})
}

// AcceptInvitation joins the group
// POST /api/groups/invitations/:id/accept
func AcceptInvitation(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	invitationID, err := paramID(c, "id", "invitation")
	if err != nil {
		return handleError(c, err)
	}

	inv, err := groupService.Accept(c.UserContext(), userID, invitationID)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"invitation": inv})
}

// DeclineInvitation declines the invitation and keeps the row
// POST /api/groups/invitations/:id/decline
func DeclineInvitation(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return handleError(c, err)
	}
	invitationID, err := paramID(c, "id", "invitation")
	if err != nil {
		return handleError(c, err)
	}

	inv, err := groupService.Decline(c.UserContext(), userID, invitationID)
	if err != nil {
		return handleError(c, err)
	}
	return utils.JSONSuccess(c, fiber.Map{"invitation": inv})
}
