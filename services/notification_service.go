// services/notification_service.go - Notification fan-out and inbox
package services

import (
	"context"
	"fmt"
	"strings"

	"teetime/logging"
	"teetime/mailer"
	"teetime/metrics"
	"teetime/models"

	"gorm.io/gorm"
)

type NotificationService struct {
	db     *gorm.DB
	mail   mailer.Mailer
	appURL string
}

func NewNotificationService(db *gorm.DB, mail mailer.Mailer, appURL string) *NotificationService {
	return &NotificationService{db: db, mail: mail, appURL: strings.TrimSuffix(appURL, "/")}
}

// NotifyParams describes one inbox entry.
type NotifyParams struct {
	UserID   uint
	SenderID *uint
	MatchID  *uint
	GroupID  *uint
	Type     models.NotificationType
	Title    string
	Message  string
}

// Notify inserts the notification and queues an email when the recipient
// opted in to the category. It never fails the caller; errors are logged.
func (s *NotificationService) Notify(ctx context.Context, p NotifyParams) {
	if err := s.NotifyTx(s.db.WithContext(ctx), p); err != nil {
		logging.With("notifications").Error().Err(err).Uint("user_id", p.UserID).Str("type", string(p.Type)).Msg("notification insert failed")
		return
	}
	s.EmailFor(ctx, p)
}

// NotifyTx inserts the inbox entry inside the caller's transaction. The
// caller sends the email with EmailFor once the transaction commits.
func (s *NotificationService) NotifyTx(tx *gorm.DB, p NotifyParams) error {
	err := tx.Create(&models.Notification{
		UserID:   p.UserID,
		SenderID: p.SenderID,
		MatchID:  p.MatchID,
		GroupID:  p.GroupID,
		Type:     p.Type,
		Title:    p.Title,
		Message:  p.Message,
	}).Error
	if err == nil {
		metrics.NotificationsCreated.WithLabelValues(string(p.Type)).Inc()
	}
	return err
}

// EmailFor queues the email copy of a notification if the recipient wants it.
func (s *NotificationService) EmailFor(ctx context.Context, p NotifyParams) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, p.UserID).Error; err != nil {
		logging.With("notifications").Error().Err(err).Uint("user_id", p.UserID).Msg("notification recipient lookup failed")
		return
	}
	if !user.WantsEmail(p.Type) {
		return
	}
	s.sendTo(ctx, &user, string(p.Type), p.Title, s.emailBody(p))
}

// NotifyAll notifies several recipients with the same content.
func (s *NotificationService) NotifyAll(ctx context.Context, userIDs []uint, p NotifyParams) {
	for _, id := range userIDs {
		p.UserID = id
		s.Notify(ctx, p)
	}
}

// SendEmail queues an email to a user without creating an inbox entry.
// Used for chat messages, which are not stored per recipient.
func (s *NotificationService) SendEmail(ctx context.Context, userID uint, t models.NotificationType, subject, body string) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		logging.With("notifications").Error().Err(err).Uint("user_id", userID).Msg("email recipient lookup failed")
		return
	}
	if !user.WantsEmail(t) {
		return
	}
	s.sendTo(ctx, &user, string(t), subject, body)
}

// SendDirect queues an email to an address, for auth and contact mail.
func (s *NotificationService) SendDirect(ctx context.Context, to, category, subject, body string) {
	if err := s.mail.Send(ctx, mailer.Email{To: to, Subject: subject, Body: body, Category: category}); err != nil {
		logging.With("notifications").Error().Err(err).Str("category", category).Msg("email enqueue failed")
	}
}

// Link builds an absolute front-end URL.
func (s *NotificationService) Link(path string) string {
	return s.appURL + path
}

func (s *NotificationService) sendTo(ctx context.Context, user *models.User, category, subject, body string) {
	err := s.mail.Send(ctx, mailer.Email{
		To:       user.Email,
		Subject:  subject,
		Body:     body,
		Category: category,
	})
	if err != nil {
		logging.With("notifications").Error().Err(err).Uint("user_id", user.ID).Str("category", category).Msg("email enqueue failed")
	}
}

func (s *NotificationService) emailBody(p NotifyParams) string {
	var b strings.Builder
	b.WriteString(p.Message)
	b.WriteString("\n\n")
	switch {
	case p.MatchID != nil:
		b.WriteString(s.Link(fmt.Sprintf("/matches/%d", *p.MatchID)))
	case p.GroupID != nil:
		b.WriteString(s.Link(fmt.Sprintf("/groups/%d", *p.GroupID)))
	default:
		b.WriteString(s.Link("/notifications"))
	}
	b.WriteString("\n\nYou can turn these emails off in your profile settings.\n")
	return b.String()
}

// ================== INBOX ==================

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	q := s.db.WithContext(ctx).
		Preload("Sender").
		Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}
	var out []models.Notification
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&out).Error
	return out, err
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uint) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("Notification not found")
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}

func (s *NotificationService) Delete(ctx context.Context, userID, notificationID uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&models.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("Notification not found")
	}
	return nil
}
