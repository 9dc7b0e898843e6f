// models/chat.go
package models

import "time"

const MaxChatMessageLength = 2000

// ChatRoom is the message thread of exactly one match.
type ChatRoom struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	MatchID   uint      `json:"match_id" gorm:"not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
}

func (ChatRoom) TableName() string {
	return "chat_rooms"
}

type ChatMessage struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	RoomID    uint      `json:"room_id" gorm:"not null;index"`
	SenderID  uint      `json:"sender_id" gorm:"not null"`
	Sender    *User     `json:"sender,omitempty" gorm:"foreignKey:SenderID"`
	Content   string    `json:"content" gorm:"not null;type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
