// services/group_service.go - Groups, membership and the invitation workflow
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"teetime/logging"
	"teetime/models"
	"teetime/storage"

	"gorm.io/gorm"
)

type GroupService struct {
	db       *gorm.DB
	notifier *NotificationService
	store    storage.Store
}

func NewGroupService(db *gorm.DB, notifier *NotificationService, store storage.Store) *GroupService {
	return &GroupService{db: db, notifier: notifier, store: store}
}

type CreateGroupInput struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=1000"`
	InviteeIDs  []uint `json:"invitee_ids" validate:"max=50"`
}

type UpdateGroupInput struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// InviteResult reports which users got an invitation and which were skipped.
type InviteResult struct {
	Invited []uint `json:"invited"`
	Skipped []uint `json:"skipped"`
}

// ================== GROUP CRUD OPERATIONS ==================

// Create makes the group, the creator's membership, the invitations and
// their inbox entries in one transaction.
func (s *GroupService) Create(ctx context.Context, creatorID uint, in CreateGroupInput) (*models.Group, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}

	group := &models.Group{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		CreatorID:   creatorID,
	}
	var creator models.User
	var sent []NotifyParams

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id", "name").First(&creator, creatorID).Error; err != nil {
			return notFoundOr(err, "User not found")
		}
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.GroupMember{
			GroupID:  group.ID,
			UserID:   creatorID,
			JoinedAt: time.Now().UTC(),
		}).Error; err != nil {
			return err
		}

		invitees, err := existingUsers(tx, dedupe(in.InviteeIDs, creatorID))
		if err != nil {
			return err
		}
		for _, id := range invitees {
			if err := tx.Create(&models.GroupInvitation{
				GroupID:   group.ID,
				InviteeID: id,
				InviterID: creatorID,
				Status:    models.InvitationPending,
			}).Error; err != nil {
				return err
			}
			p := s.invitationNotice(group, &creator, id)
			if err := s.notifier.NotifyTx(tx, p); err != nil {
				return err
			}
			sent = append(sent, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, p := range sent {
		s.notifier.EmailFor(ctx, p)
	}
	logging.With("groups").Info().Uint("group_id", group.ID).Int("invited", len(sent)).Msg("group created")
	return group, nil
}

func (s *GroupService) invitationNotice(group *models.Group, inviter *models.User, inviteeID uint) NotifyParams {
	return NotifyParams{
		UserID:   inviteeID,
		SenderID: uintPtr(inviter.ID),
		GroupID:  uintPtr(group.ID),
		Type:     models.NotificationGroupInvite,
		Title:    "Group invitation",
		Message:  fmt.Sprintf("%s invited you to join %q.", inviter.Name, group.Name),
	}
}

// Get returns a group with its members. Only members may see it.
func (s *GroupService) Get(ctx context.Context, viewerID, groupID uint) (*models.Group, error) {
	db := s.db.WithContext(ctx)
	var group models.Group
	err := db.Preload("Creator").
		Preload("Members", func(q *gorm.DB) *gorm.DB { return q.Order("joined_at ASC, id ASC") }).
		Preload("Members.User").
		First(&group, groupID).Error
	if err != nil {
		return nil, notFoundOr(err, "Group not found")
	}
	if !hasMember(&group, viewerID) {
		return nil, forbidden("Only group members can view this group")
	}
	return &group, nil
}

func hasMember(g *models.Group, userID uint) bool {
	for _, m := range g.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// Mine lists the groups the user belongs to.
func (s *GroupService) Mine(ctx context.Context, userID uint) ([]models.Group, error) {
	db := s.db.WithContext(ctx)
	var groups []models.Group
	err := db.Where("id IN (?)", db.Model(&models.GroupMember{}).Select("group_id").Where("user_id = ?", userID)).
		Preload("Members").
		Order("name ASC").
		Find(&groups).Error
	return groups, err
}

// Update edits name or description. Only the creator may call it.
func (s *GroupService) Update(ctx context.Context, userID, groupID uint, in UpdateGroupInput) (*models.Group, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	group, err := s.owned(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(group).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return group, nil
}

// Delete removes the group with its memberships and invitations. Its
// matches stay private and lose the group link.
func (s *GroupService) Delete(ctx context.Context, userID, groupID uint) error {
	group, err := s.owned(ctx, userID, groupID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupInvitation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Match{}).Where("group_id = ?", groupID).Update("group_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Notification{}).Where("group_id = ?", groupID).Update("group_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(group).Error
	})
	if err != nil {
		return err
	}

	if group.IconURL != "" {
		s.deleteObject(ctx, group.IconURL)
	}
	return nil
}

func (s *GroupService) owned(ctx context.Context, userID, groupID uint) (*models.Group, error) {
	var group models.Group
	if err := s.db.WithContext(ctx).First(&group, groupID).Error; err != nil {
		return nil, notFoundOr(err, "Group not found")
	}
	if group.CreatorID != userID {
		return nil, forbidden("Only the group creator can do that")
	}
	return &group, nil
}

// ================== MEMBERSHIP ==================

// Members lists members with their profiles. Only members may call it.
func (s *GroupService) Members(ctx context.Context, viewerID, groupID uint) ([]models.GroupMember, error) {
	group, err := s.Get(ctx, viewerID, groupID)
	if err != nil {
		return nil, err
	}
	return group.Members, nil
}

// IsMember reports whether the user belongs to the group.
func (s *GroupService) IsMember(ctx context.Context, groupID, userID uint) (bool, error) {
	return isGroupMember(s.db.WithContext(ctx), groupID, userID)
}

// RemoveMember removes another member. Only the creator may call it.
func (s *GroupService) RemoveMember(ctx context.Context, userID, groupID, memberID uint) error {
	if _, err := s.owned(ctx, userID, groupID); err != nil {
		return err
	}
	if memberID == userID {
		return invalid("The group creator cannot be removed")
	}
	res := s.db.WithContext(ctx).Where("group_id = ? AND user_id = ?", groupID, memberID).Delete(&models.GroupMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("Member not found")
	}
	return nil
}

// Leave removes the caller from a group they did not create.
func (s *GroupService) Leave(ctx context.Context, userID, groupID uint) error {
	db := s.db.WithContext(ctx)
	var group models.Group
	if err := db.First(&group, groupID).Error; err != nil {
		return notFoundOr(err, "Group not found")
	}
	if group.CreatorID == userID {
		return invalid("The group creator cannot leave; delete the group instead")
	}
	res := db.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&models.GroupMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("You are not a member of this group")
	}
	return nil
}

// ================== INVITATIONS ==================

// Invite invites users to the group. Members and users with a pending
// invitation are skipped; a declined invitation is reopened.
func (s *GroupService) Invite(ctx context.Context, userID, groupID uint, userIDs []uint) (*InviteResult, error) {
	if len(userIDs) == 0 {
		return nil, invalid("user_ids is required")
	}
	if len(userIDs) > 50 {
		return nil, invalid("Cannot invite more than 50 users at once")
	}

	result := &InviteResult{Invited: []uint{}, Skipped: []uint{}}
	var group models.Group
	var inviter models.User
	var sent []NotifyParams

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&group, groupID).Error; err != nil {
			return notFoundOr(err, "Group not found")
		}
		if group.CreatorID != userID {
			return forbidden("Only the group creator can invite members")
		}
		if err := tx.Select("id", "name").First(&inviter, userID).Error; err != nil {
			return notFoundOr(err, "User not found")
		}

		candidates := dedupe(userIDs, userID)
		existing, err := existingUsers(tx, candidates)
		if err != nil {
			return err
		}
		known := make(map[uint]bool, len(existing))
		for _, id := range existing {
			known[id] = true
		}

		for _, id := range candidates {
			if !known[id] {
				result.Skipped = append(result.Skipped, id)
				continue
			}
			member, err := isGroupMember(tx, groupID, id)
			if err != nil {
				return err
			}
			if member {
				result.Skipped = append(result.Skipped, id)
				continue
			}

			var inv models.GroupInvitation
			err = tx.Where("group_id = ? AND invitee_id = ?", groupID, id).First(&inv).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				inv = models.GroupInvitation{
					GroupID:   groupID,
					InviteeID: id,
					InviterID: userID,
					Status:    models.InvitationPending,
				}
				if err := tx.Create(&inv).Error; err != nil {
					return err
				}
			case err != nil:
				return err
			case inv.Status == models.InvitationPending:
				result.Skipped = append(result.Skipped, id)
				continue
			default:
				// declined, or accepted by someone who later left
				if err := tx.Model(&inv).Updates(map[string]interface{}{
					"status":     models.InvitationPending,
					"inviter_id": userID,
				}).Error; err != nil {
					return err
				}
			}

			p := s.invitationNotice(&group, &inviter, id)
			if err := s.notifier.NotifyTx(tx, p); err != nil {
				return err
			}
			sent = append(sent, p)
			result.Invited = append(result.Invited, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, p := range sent {
		s.notifier.EmailFor(ctx, p)
	}
	return result, nil
}

// Invitations lists the caller's pending invitations.
func (s *GroupService) Invitations(ctx context.Context, userID uint) ([]models.GroupInvitation, error) {
	var out []models.GroupInvitation
	err := s.db.WithContext(ctx).
		Preload("Group").
		Preload("Inviter").
		Where("invitee_id = ? AND status = ?", userID, models.InvitationPending).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// Accept marks the invitation accepted and adds the membership in one
// transaction.
func (s *GroupService) Accept(ctx context.Context, userID, invitationID uint) (*models.GroupInvitation, error) {
	inv, err := s.respond(ctx, userID, invitationID, models.InvitationAccepted)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, NotifyParams{
		UserID:   inv.InviterID,
		SenderID: uintPtr(userID),
		GroupID:  uintPtr(inv.GroupID),
		Type:     models.NotificationGroupInviteAccepted,
		Title:    "Invitation accepted",
		Message:  fmt.Sprintf("%s joined %q.", nameOf(inv.Invitee), groupName(inv.Group)),
	})
	return inv, nil
}

// Decline marks the invitation declined. The row is kept so the group
// can invite again, and memberships are left alone.
func (s *GroupService) Decline(ctx context.Context, userID, invitationID uint) (*models.GroupInvitation, error) {
	inv, err := s.respond(ctx, userID, invitationID, models.InvitationDeclined)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, NotifyParams{
		UserID:   inv.InviterID,
		SenderID: uintPtr(userID),
		GroupID:  uintPtr(inv.GroupID),
		Type:     models.NotificationGroupInviteDeclined,
		Title:    "Invitation declined",
		Message:  fmt.Sprintf("%s declined to join %q.", nameOf(inv.Invitee), groupName(inv.Group)),
	})
	return inv, nil
}

func (s *GroupService) respond(ctx context.Context, userID, invitationID uint, status models.InvitationStatus) (*models.GroupInvitation, error) {
	var inv models.GroupInvitation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).Preload("Group").Preload("Invitee").First(&inv, invitationID).Error; err != nil {
			return notFoundOr(err, "Invitation not found")
		}
		if inv.InviteeID != userID {
			return forbidden("This invitation is not addressed to you")
		}
		if inv.Status != models.InvitationPending {
			return invalid(fmt.Sprintf("Invitation was already %s", inv.Status))
		}
		if err := tx.Model(&inv).Update("status", status).Error; err != nil {
			return err
		}
		inv.Status = status
		if status != models.InvitationAccepted {
			return nil
		}

		member, err := isGroupMember(tx, inv.GroupID, userID)
		if err != nil || member {
			return err
		}
		return tx.Create(&models.GroupMember{
			GroupID:  inv.GroupID,
			UserID:   userID,
			JoinedAt: time.Now().UTC(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// ================== ICON ==================

// UploadIcon stores a new group icon and deletes the previous one best-effort.
func (s *GroupService) UploadIcon(ctx context.Context, userID, groupID uint, body []byte) (*models.Group, error) {
	group, err := s.owned(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	contentType, ext, err := storage.CheckImage(body)
	if err != nil {
		return nil, invalid(err.Error())
	}
	url, err := s.store.Put(ctx, storage.ImageKey("groups", groupID, ext), body, contentType)
	if err != nil {
		if errors.Is(err, storage.ErrDisabled) {
			return nil, invalid(err.Error())
		}
		return nil, err
	}

	old := group.IconURL
	if err := s.db.WithContext(ctx).Model(group).Update("icon_url", url).Error; err != nil {
		s.deleteObject(ctx, url)
		return nil, err
	}
	if old != "" {
		s.deleteObject(ctx, old)
	}
	return group, nil
}

func (s *GroupService) deleteObject(ctx context.Context, url string) {
	if err := s.store.Delete(ctx, url); err != nil {
		logging.With("groups").Warn().Err(err).Str("url", url).Msg("delete stored object")
	}
}

// ================== HELPER FUNCTIONS ==================

// dedupe drops duplicates, zeros and the excluded id, keeping order.
func dedupe(ids []uint, exclude uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || id == exclude || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func existingUsers(db *gorm.DB, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uint
	err := db.Model(&models.User{}).Where("id IN ?", ids).Order("id ASC").Pluck("id", &found).Error
	return found, err
}

func nameOf(u *models.User) string {
	if u == nil || u.Name == "" {
		return "Someone"
	}
	return u.Name
}

func groupName(g *models.Group) string {
	if g == nil {
		return "your group"
	}
	return g.Name
}
