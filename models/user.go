// models/user.go
package models

import (
	"time"
)

type User struct {
	ID       uint     `gorm:"primaryKey" json:"id"`
	Name     string   `gorm:"not null;size:100" json:"name"`
	Email    string   `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password string   `gorm:"not null" json:"-"`
	Image    string   `json:"image"`
	Handicap *float64 `json:"handicap"`
	ZipCode  string   `gorm:"size:10;index" json:"zip_code"`
	Bio      string   `gorm:"type:text" json:"bio"`

	// Email preferences, one flag per notification category
	EmailOnJoinRequest     bool `json:"email_on_join_request"`
	EmailOnRequestResponse bool `json:"email_on_request_response"`
	EmailOnGroupInvite     bool `json:"email_on_group_invite"`
	EmailOnChatMessage     bool `json:"email_on_chat_message"`
	EmailOnMatchUpdate     bool `json:"email_on_match_update"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// WantsEmail reports whether the user opted in to emails for the category
// the notification type belongs to.
func (u *User) WantsEmail(t NotificationType) bool {
	switch t {
	case NotificationJoinRequest, NotificationPlayerLeft:
		return u.EmailOnJoinRequest
	case NotificationRequestAccepted, NotificationRequestDeclined:
		return u.EmailOnRequestResponse
	case NotificationGroupInvite, NotificationGroupInviteAccepted, NotificationGroupInviteDeclined:
		return u.EmailOnGroupInvite
	case NotificationChatMessage:
		return u.EmailOnChatMessage
	case NotificationMatchCompleted, NotificationMatchCancelled, NotificationMatchUpdated:
		return u.EmailOnMatchUpdate
	default:
		return false
	}
}

// UserSummary is the public slice of a user embedded in lists.
type UserSummary struct {
	ID       uint     `json:"id"`
	Name     string   `json:"name"`
	Image    string   `json:"image"`
	Handicap *float64 `json:"handicap"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:       u.ID,
		Name:     u.Name,
		Image:    u.Image,
		Handicap: u.Handicap,
	}
}

// PasswordResetToken stores the SHA-256 hash of a one-time reset token.
type PasswordResetToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	TokenHash string     `gorm:"uniqueIndex;not null;size:64" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func (PasswordResetToken) TableName() string {
	return "password_reset_tokens"
}
