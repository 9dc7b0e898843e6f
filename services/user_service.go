// services/user_service.go - Profiles and user search
package services

import (
	"context"
	"errors"
	"strings"

	"teetime/logging"
	"teetime/models"
	"teetime/storage"

	"gorm.io/gorm"
)

type UserService struct {
	db    *gorm.DB
	store storage.Store
}

func NewUserService(db *gorm.DB, store storage.Store) *UserService {
	return &UserService{db: db, store: store}
}

type UpdateProfileInput struct {
	Name                   *string  `json:"name" validate:"omitempty,min=2,max=100"`
	Handicap               *float64 `json:"handicap" validate:"omitempty,gte=-10,lte=54"`
	ZipCode                *string  `json:"zip_code" validate:"omitempty,max=10"`
	Bio                    *string  `json:"bio" validate:"omitempty,max=1000"`
	EmailOnJoinRequest     *bool    `json:"email_on_join_request"`
	EmailOnRequestResponse *bool    `json:"email_on_request_response"`
	EmailOnGroupInvite     *bool    `json:"email_on_group_invite"`
	EmailOnChatMessage     *bool    `json:"email_on_chat_message"`
	EmailOnMatchUpdate     *bool    `json:"email_on_match_update"`
}

// PublicProfile is what other users see.
type PublicProfile struct {
	models.UserSummary
	ZipCode       string  `json:"zip_code"`
	Bio           string  `json:"bio"`
	RatingAverage float64 `json:"rating_average"`
	RatingCount   int64   `json:"rating_count"`
	MatchesPlayed int64   `json:"matches_played"`
}

func (s *UserService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*models.User, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Handicap != nil {
		updates["handicap"] = *in.Handicap
	}
	if in.ZipCode != nil {
		updates["zip_code"] = strings.TrimSpace(*in.ZipCode)
	}
	if in.Bio != nil {
		updates["bio"] = *in.Bio
	}
	flags := map[string]*bool{
		"email_on_join_request":     in.EmailOnJoinRequest,
		"email_on_request_response": in.EmailOnRequestResponse,
		"email_on_group_invite":     in.EmailOnGroupInvite,
		"email_on_chat_message":     in.EmailOnChatMessage,
		"email_on_match_update":     in.EmailOnMatchUpdate,
	}
	for col, v := range flags {
		if v != nil {
			updates[col] = *v
		}
	}
	if len(updates) == 0 {
		return user, nil
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.Profile(ctx, userID)
}

// UploadAvatar stores a new profile image and deletes the old one best-effort.
func (s *UserService) UploadAvatar(ctx context.Context, userID uint, body []byte) (*models.User, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	contentType, ext, err := storage.CheckImage(body)
	if err != nil {
		return nil, invalid(err.Error())
	}
	url, err := s.store.Put(ctx, storage.ImageKey("avatars", userID, ext), body, contentType)
	if err != nil {
		if errors.Is(err, storage.ErrDisabled) {
			return nil, invalid(err.Error())
		}
		return nil, err
	}

	old := user.Image
	if err := s.db.WithContext(ctx).Model(user).Update("image", url).Error; err != nil {
		s.deleteObject(ctx, url)
		return nil, err
	}
	if old != "" {
		s.deleteObject(ctx, old)
	}
	return user, nil
}

func (s *UserService) deleteObject(ctx context.Context, url string) {
	if err := s.store.Delete(ctx, url); err != nil {
		logging.With("users").Warn().Err(err).Str("url", url).Msg("delete stored object")
	}
}

// PublicProfile returns another user's profile with rating stats.
func (s *UserService) PublicProfile(ctx context.Context, userID uint) (*PublicProfile, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	out := &PublicProfile{UserSummary: user.Summary(), ZipCode: user.ZipCode, Bio: user.Bio}
	if out.RatingAverage, out.RatingCount, err = ratingSummary(db, userID); err != nil {
		return nil, err
	}

	err = db.Model(&models.Match{}).
		Where("status = ?", models.MatchStatusCompleted).
		Where("creator_id = ? OR id IN (?)", userID,
			db.Model(&models.MatchPlayer{}).Select("match_id").
				Where("player_id = ? AND status = ?", userID, models.PlayerStatusAccepted)).
		Count(&out.MatchesPlayed).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Search finds users by name or email prefix, for invitations.
func (s *UserService) Search(ctx context.Context, query string, excludeID uint, limit int) ([]models.UserSummary, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if len(query) < 2 {
		return []models.UserSummary{}, nil
	}
	if limit <= 0 || limit > 20 {
		limit = 10
	}

	var users []models.User
	err := s.db.WithContext(ctx).
		Where("id <> ?", excludeID).
		Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", "%"+query+"%", query+"%").
		Order("name ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.UserSummary, len(users))
	for i := range users {
		out[i] = users[i].Summary()
	}
	return out, nil
}
