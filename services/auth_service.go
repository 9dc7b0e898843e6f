// services/auth_service.go - Registration, login and password reset
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"teetime/logging"
	"teetime/models"
	"teetime/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const resetTokenTTL = time.Hour

type AuthService struct {
	db       *gorm.DB
	signer   *utils.TokenSigner
	notifier *NotificationService
	now      func() time.Time
}

func NewAuthService(db *gorm.DB, signer *utils.TokenSigner, notifier *NotificationService) *AuthService {
	return &AuthService{db: db, signer: signer, notifier: notifier, now: time.Now}
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ResetPasswordInput struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Session is returned by register and login.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// bcrypt rejects longer input; the validator's max counts runes.
const maxPasswordBytes = 72

func hashPassword(password string) ([]byte, error) {
	if len(password) > maxPasswordBytes {
		return nil, invalid("Password must be at most 72 bytes")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account with every email category switched on.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validate(&in); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, conflict("An account with this email already exists")
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:                   in.Name,
		Email:                  in.Email,
		Password:               string(hash),
		EmailOnJoinRequest:     true,
		EmailOnRequestResponse: true,
		EmailOnGroupInvite:     true,
		EmailOnChatMessage:     true,
		EmailOnMatchUpdate:     true,
	}
	if err := db.Create(user).Error; err != nil {
		return nil, conflictOr(err, "An account with this email already exists")
	}

	logging.With("auth").Info().Uint("user_id", user.ID).Msg("user registered")
	return s.session(user)
}

// Login checks the password and issues a token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validate(&in); err != nil {
		return nil, err
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", in.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, unauthorized("Invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, unauthorized("Invalid email or password")
	}
	return s.session(&user)
}

func (s *AuthService) session(user *models.User) (*Session, error) {
	token, err := s.signer.Generate(user.ID, user.Name)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{Token: token, User: user}, nil
}

// ForgotPassword stores a reset token and emails the link. It reports
// success whether or not the address is registered.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := validate(&struct {
		Email string `json:"email" validate:"required,email"`
	}{email}); err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	var user models.User
	err := db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token, err := utils.RandomToken(32)
	if err != nil {
		return err
	}
	if err := db.Create(&models.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: utils.HashToken(token),
		ExpiresAt: s.now().UTC().Add(resetTokenTTL),
	}).Error; err != nil {
		return err
	}

	link := s.notifier.Link("/reset-password?token=" + url.QueryEscape(token))
	body := fmt.Sprintf("Hi %s,\n\nSomeone asked to reset your TeeTime password. "+
		"Use the link below within the next hour:\n\n%s\n\n"+
		"If it wasn't you, you can ignore this email.\n", user.Name, link)
	s.notifier.SendDirect(ctx, user.Email, "password_reset", "Reset your TeeTime password", body)
	return nil
}

// ResetPassword sets a new password and burns the token and any other
// outstanding tokens of the user.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if err := validate(&in); err != nil {
		return err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return err
	}
	now := s.now().UTC()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rt models.PasswordResetToken
		err := forUpdate(tx).
			Where("token_hash = ? AND used_at IS NULL", utils.HashToken(in.Token)).
			First(&rt).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalid("Reset link is invalid or has expired")
		}
		if err != nil {
			return err
		}
		if !rt.ExpiresAt.After(now) {
			return invalid("Reset link is invalid or has expired")
		}

		if err := tx.Model(&models.User{}).Where("id = ?", rt.UserID).Update("password", string(hash)).Error; err != nil {
			return err
		}
		return tx.Model(&models.PasswordResetToken{}).
			Where("user_id = ? AND used_at IS NULL", rt.UserID).
			Update("used_at", now).Error
	})
}
