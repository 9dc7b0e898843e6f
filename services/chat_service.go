// services/chat_service.go - Match chat history and posting
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"teetime/models"

	"gorm.io/gorm"
)

// RoomBroadcaster pushes an event to every live connection in a chat room.
type RoomBroadcaster interface {
	BroadcastToRoom(roomID uint, eventType string, payload interface{})
}

// EventMessageNew is pushed to the room when a message is posted over HTTP.
const EventMessageNew = "message:new"

type ChatService struct {
	db       *gorm.DB
	notifier *NotificationService
	hub      RoomBroadcaster
}

func NewChatService(db *gorm.DB, notifier *NotificationService, hub RoomBroadcaster) *ChatService {
	return &ChatService{db: db, notifier: notifier, hub: hub}
}

// SetBroadcaster attaches the live hub. The hub authorizes joins through
// this service, so it is created afterwards.
func (s *ChatService) SetBroadcaster(hub RoomBroadcaster) {
	s.hub = hub
}

// room loads the match's chat room after checking the caller takes part.
func (s *ChatService) room(ctx context.Context, userID, matchID uint) (*models.ChatRoom, *models.Match, error) {
	db := s.db.WithContext(ctx)
	var match models.Match
	if err := db.First(&match, matchID).Error; err != nil {
		return nil, nil, notFoundOr(err, "Match not found")
	}
	ids, err := participantIDs(db, matchID)
	if err != nil {
		return nil, nil, err
	}
	if !containsID(ids, userID) {
		return nil, nil, forbidden("Only the organizer and accepted players can use this chat")
	}
	var room models.ChatRoom
	if err := db.Where("match_id = ?", matchID).First(&room).Error; err != nil {
		return nil, nil, notFoundOr(err, "Chat room not found")
	}
	return &room, &match, nil
}

// CanAccessRoom reports whether the user may join a live chat room.
func (s *ChatService) CanAccessRoom(ctx context.Context, userID, roomID uint) (bool, error) {
	db := s.db.WithContext(ctx)
	var room models.ChatRoom
	if err := db.First(&room, roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	ids, err := participantIDs(db, room.MatchID)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return containsID(ids, userID), nil
}

// Messages returns up to limit messages in chronological order. With a
// non-zero before id, only older messages are returned.
func (s *ChatService) Messages(ctx context.Context, userID, matchID uint, limit int, before uint) ([]models.ChatMessage, error) {
	room, _, err := s.room(ctx, userID, matchID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	q := s.db.WithContext(ctx).Preload("Sender").Where("room_id = ?", room.ID)
	if before > 0 {
		q = q.Where("id < ?", before)
	}
	var msgs []models.ChatMessage
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Post stores a message, pushes it to the live room and emails the other
// participants who opted in.
func (s *ChatService) Post(ctx context.Context, userID, matchID uint, content string) (*models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("Message cannot be empty")
	}
	if utf8.RuneCountInString(content) > models.MaxChatMessageLength {
		return nil, invalid(fmt.Sprintf("Message must be at most %d characters", models.MaxChatMessageLength))
	}

	room, match, err := s.room(ctx, userID, matchID)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	msg := &models.ChatMessage{RoomID: room.ID, SenderID: userID, Content: content}
	if err := db.Create(msg).Error; err != nil {
		return nil, err
	}
	if err := db.Preload("Sender").First(msg, msg.ID).Error; err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.BroadcastToRoom(room.ID, EventMessageNew, msg)
	}

	recipients, err := participantIDs(db, matchID)
	if err != nil {
		return msg, nil
	}
	subject := fmt.Sprintf("New message in %q", match.Title)
	body := fmt.Sprintf("%s wrote:\n\n%s\n\n%s\n", nameOf(msg.Sender), content,
		s.notifier.Link(fmt.Sprintf("/matches/%d/chat", matchID)))
	for _, id := range recipients {
		if id != userID {
			s.notifier.SendEmail(ctx, id, models.NotificationChatMessage, subject, body)
		}
	}
	return msg, nil
}
