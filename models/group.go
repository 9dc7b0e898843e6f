// models/group.go
package models

import "time"

type Group struct {
	ID          uint          `json:"id" gorm:"primaryKey"`
	Name        string        `json:"name" gorm:"not null;size:100"`
	Description string        `json:"description" gorm:"type:text"`
	IconURL     string        `json:"icon_url"`
	CreatorID   uint          `json:"creator_id" gorm:"not null;index"`
	Creator     *User         `json:"creator,omitempty" gorm:"foreignKey:CreatorID"`
	Members     []GroupMember `json:"members,omitempty" gorm:"foreignKey:GroupID"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (Group) TableName() string {
	return "groups"
}

type GroupMember struct {
	ID       uint      `json:"id" gorm:"primaryKey"`
	GroupID  uint      `json:"group_id" gorm:"not null;uniqueIndex:idx_group_members_group_user"`
	UserID   uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_group_members_group_user;index"`
	User     *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	JoinedAt time.Time `json:"joined_at" gorm:"not null"`
}

func (GroupMember) TableName() string {
	return "group_members"
}

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// GroupInvitation keeps one row per (group, invitee). A declined invitation
// is flipped back to pending on re-invite.
type GroupInvitation struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	GroupID   uint             `json:"group_id" gorm:"not null;uniqueIndex:idx_group_invitations_group_invitee"`
	Group     *Group           `json:"group,omitempty" gorm:"foreignKey:GroupID"`
	InviteeID uint             `json:"invitee_id" gorm:"not null;uniqueIndex:idx_group_invitations_group_invitee;index"`
	Invitee   *User            `json:"invitee,omitempty" gorm:"foreignKey:InviteeID"`
	InviterID uint             `json:"inviter_id" gorm:"not null"`
	Inviter   *User            `json:"inviter,omitempty" gorm:"foreignKey:InviterID"`
	Status    InvitationStatus `json:"status" gorm:"not null;size:20;index"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func (GroupInvitation) TableName() string {
	return "group_invitations"
}
