// services/contact_service.go - Contact form and email capture
package services

import (
	"context"
	"fmt"
	"strings"

	"teetime/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ContactService struct {
	db       *gorm.DB
	notifier *NotificationService
	inbox    string
}

func NewContactService(db *gorm.DB, notifier *NotificationService, inbox string) *ContactService {
	return &ContactService{db: db, notifier: notifier, inbox: inbox}
}

type ContactInput struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email,max=255"`
	Subject string `json:"subject" validate:"max=200"`
	Message string `json:"message" validate:"required,min=10,max=5000"`
}

type SubscribeInput struct {
	Email  string `json:"email" validate:"required,email,max=255"`
	Source string `json:"source" validate:"max=50"`
}

// Submit stores a contact message and forwards it to the site inbox.
func (s *ContactService) Submit(ctx context.Context, in ContactInput) (*models.ContactMessage, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validate(&in); err != nil {
		return nil, err
	}

	msg := &models.ContactMessage{
		Name:    in.Name,
		Email:   in.Email,
		Subject: in.Subject,
		Message: in.Message,
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}

	subject := "Contact form"
	if in.Subject != "" {
		subject = "Contact form: " + in.Subject
	}
	body := fmt.Sprintf("From: %s <%s>\n\n%s\n", in.Name, in.Email, in.Message)
	s.notifier.SendDirect(ctx, s.inbox, "contact", subject, body)
	return msg, nil
}

// Subscribe records an email address once. Repeated calls succeed.
func (s *ContactService) Subscribe(ctx context.Context, in SubscribeInput) error {
	in.Email = normalizeEmail(in.Email)
	if err := validate(&in); err != nil {
		return err
	}
	if in.Source == "" {
		in.Source = "website"
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(&models.EmailSubscriber{Email: in.Email, Source: in.Source}).Error
}
