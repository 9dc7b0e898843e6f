// services/rating_service.go - Post-round player ratings
package services

import (
	"context"
	"fmt"
	"math"

	"teetime/models"

	"gorm.io/gorm"
)

type RatingService struct {
	db       *gorm.DB
	notifier *NotificationService
}

func NewRatingService(db *gorm.DB, notifier *NotificationService) *RatingService {
	return &RatingService{db: db, notifier: notifier}
}

type CreateRatingInput struct {
	RatedUserID uint   `json:"rated_user_id" validate:"required"`
	Value       int    `json:"value" validate:"required,gte=1,lte=5"`
	Comment     string `json:"comment" validate:"max=1000"`
}

// UserRatings is a user's received ratings with their average.
type UserRatings struct {
	Average float64         `json:"average"`
	Count   int64           `json:"count"`
	Ratings []models.Rating `json:"ratings"`
}

// Create rates a co-participant of a completed match. Each rater may rate
// each player once per match.
func (s *RatingService) Create(ctx context.Context, raterID, matchID uint, in CreateRatingInput) (*models.Rating, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	if in.RatedUserID == raterID {
		return nil, invalid("You cannot rate yourself")
	}

	db := s.db.WithContext(ctx)
	var match models.Match
	if err := db.First(&match, matchID).Error; err != nil {
		return nil, notFoundOr(err, "Match not found")
	}
	if match.Status != models.MatchStatusCompleted {
		return nil, invalid("Players can only be rated after the match is completed")
	}

	participants, err := participantIDs(db, matchID)
	if err != nil {
		return nil, err
	}
	if !containsID(participants, raterID) {
		return nil, forbidden("Only players of this match can rate others")
	}
	if !containsID(participants, in.RatedUserID) {
		return nil, invalid("That user did not play in this match")
	}

	rating := &models.Rating{
		RaterID:     raterID,
		RatedUserID: in.RatedUserID,
		MatchID:     matchID,
		Value:       in.Value,
		Comment:     in.Comment,
	}
	if err := db.Create(rating).Error; err != nil {
		return nil, conflictOr(err, "You have already rated this player for this match")
	}

	s.notifier.Notify(ctx, NotifyParams{
		UserID:   in.RatedUserID,
		SenderID: uintPtr(raterID),
		MatchID:  uintPtr(matchID),
		Type:     models.NotificationRatingReceived,
		Title:    "New rating",
		Message:  fmt.Sprintf("You received a %d-star rating for %q.", in.Value, match.Title),
	})
	return rating, nil
}

// GivenForMatch lists the ratings the caller gave in one match.
func (s *RatingService) GivenForMatch(ctx context.Context, raterID, matchID uint) ([]models.Rating, error) {
	var out []models.Rating
	err := s.db.WithContext(ctx).
		Where("rater_id = ? AND match_id = ?", raterID, matchID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// ForUser returns the ratings a user received, newest first.
func (s *RatingService) ForUser(ctx context.Context, userID uint, limit int) (*UserRatings, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	db := s.db.WithContext(ctx)
	out := &UserRatings{}
	var err error
	if out.Average, out.Count, err = ratingSummary(db, userID); err != nil {
		return nil, err
	}
	err = db.Preload("Rater").
		Where("rated_user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out.Ratings).Error
	return out, err
}

// ratingSummary returns the average rounded to one decimal and the count.
func ratingSummary(db *gorm.DB, userID uint) (float64, int64, error) {
	var row struct {
		Avg   *float64
		Total int64
	}
	err := db.Model(&models.Rating{}).
		Select("AVG(value) AS avg, COUNT(*) AS total").
		Where("rated_user_id = ?", userID).
		Scan(&row).Error
	if err != nil || row.Avg == nil {
		return 0, row.Total, err
	}
	return math.Round(*row.Avg*10) / 10, row.Total, nil
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
