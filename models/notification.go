// models/notification.go
package models

import "time"

type NotificationType string

const (
	NotificationJoinRequest         NotificationType = "join_request"
	NotificationRequestAccepted     NotificationType = "request_accepted"
	NotificationRequestDeclined     NotificationType = "request_declined"
	NotificationPlayerLeft          NotificationType = "player_left"
	NotificationMatchUpdated        NotificationType = "match_updated"
	NotificationMatchCompleted      NotificationType = "match_completed"
	NotificationMatchCancelled      NotificationType = "match_cancelled"
	NotificationGroupInvite         NotificationType = "group_invite"
	NotificationGroupInviteAccepted NotificationType = "group_invite_accepted"
	NotificationGroupInviteDeclined NotificationType = "group_invite_declined"
	NotificationChatMessage         NotificationType = "chat_message"
	NotificationRatingReceived      NotificationType = "rating_received"
)

type Notification struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	UserID    uint             `json:"user_id" gorm:"not null;index"`
	SenderID  *uint            `json:"sender_id"`
	Sender    *User            `json:"sender,omitempty" gorm:"foreignKey:SenderID"`
	MatchID   *uint            `json:"match_id" gorm:"index"`
	GroupID   *uint            `json:"group_id" gorm:"index"`
	Type      NotificationType `json:"type" gorm:"not null;size:40"`
	Title     string           `json:"title" gorm:"not null;size:200"`
	Message   string           `json:"message" gorm:"type:text"`
	Read      bool             `json:"read" gorm:"index"`
	CreatedAt time.Time        `json:"created_at" gorm:"index"`
}

func (Notification) TableName() string {
	return "notifications"
}
