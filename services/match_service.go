// services/match_service.go - Matches and the join/approval workflow
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"teetime/logging"
	"teetime/models"

	"gorm.io/gorm"
)

type MatchService struct {
	db       *gorm.DB
	notifier *NotificationService
	now      func() time.Time
}

func NewMatchService(db *gorm.DB, notifier *NotificationService) *MatchService {
	return &MatchService{db: db, notifier: notifier, now: time.Now}
}

type CreateMatchInput struct {
	Title        string    `json:"title" validate:"required,min=3,max=150"`
	Description  string    `json:"description" validate:"max=2000"`
	CourseName   string    `json:"course_name" validate:"required,max=200"`
	Address      string    `json:"address" validate:"max=300"`
	ZipCode      string    `json:"zip_code" validate:"omitempty,max=10"`
	GolfCourseID *uint     `json:"golf_course_id"`
	Date         time.Time `json:"date" validate:"required"`
	MaxPlayers   int       `json:"max_players" validate:"omitempty,gte=2,lte=8"`
	IsPublic     *bool     `json:"is_public"`
	GroupID      *uint     `json:"group_id"`
}

type UpdateMatchInput struct {
	Title       *string    `json:"title" validate:"omitempty,min=3,max=150"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	CourseName  *string    `json:"course_name" validate:"omitempty,min=1,max=200"`
	Address     *string    `json:"address" validate:"omitempty,max=300"`
	ZipCode     *string    `json:"zip_code" validate:"omitempty,max=10"`
	Date        *time.Time `json:"date"`
	MaxPlayers  *int       `json:"max_players" validate:"omitempty,gte=2,lte=8"`
	IsPublic    *bool      `json:"is_public"`
}

type MatchFilter struct {
	ZipCode string
	Query   string
	Limit   int
	Offset  int
}

// MatchDetail is a match as seen by one viewer.
type MatchDetail struct {
	models.Match
	AcceptedCount int64  `json:"accepted_count"`
	PendingCount  int64  `json:"pending_count"`
	ViewerStatus  string `json:"viewer_status"`
	ChatRoomID    uint   `json:"chat_room_id"`
}

const (
	ViewerCreator  = "creator"
	ViewerAccepted = "accepted"
	ViewerPending  = "pending"
	ViewerNone     = "none"
)

// ================== MATCH CRUD ==================

// Create schedules a match and opens its chat room in the same transaction.
func (s *MatchService) Create(ctx context.Context, creatorID uint, in CreateMatchInput) (*models.Match, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	if !in.Date.After(s.now()) {
		return nil, invalid("Match date must be in the future")
	}
	if in.MaxPlayers == 0 {
		in.MaxPlayers = models.DefaultMaxPlayers
	}

	db := s.db.WithContext(ctx)
	isPublic := true
	if in.IsPublic != nil {
		isPublic = *in.IsPublic
	}
	if in.GroupID != nil {
		var group models.Group
		if err := db.First(&group, *in.GroupID).Error; err != nil {
			return nil, notFoundOr(err, "Group not found")
		}
		member, err := isGroupMember(db, group.ID, creatorID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, forbidden("You must be a member of the group to create a match for it")
		}
		isPublic = false
	}
	if in.GolfCourseID != nil {
		var count int64
		if err := db.Model(&models.GolfCourse{}).Where("id = ?", *in.GolfCourseID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, invalid("Unknown golf course")
		}
	}

	match := &models.Match{
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		CourseName:   strings.TrimSpace(in.CourseName),
		Address:      in.Address,
		ZipCode:      in.ZipCode,
		GolfCourseID: in.GolfCourseID,
		Date:         in.Date.UTC(),
		MaxPlayers:   in.MaxPlayers,
		IsPublic:     isPublic,
		GroupID:      in.GroupID,
		Status:       models.MatchStatusScheduled,
		CreatorID:    creatorID,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(match).Error; err != nil {
			return err
		}
		return tx.Create(&models.ChatRoom{MatchID: match.ID}).Error
	})
	if err != nil {
		return nil, err
	}

	logging.With("matches").Info().Uint("match_id", match.ID).Uint("creator_id", creatorID).Msg("match created")
	return s.load(ctx, match.ID)
}

func (s *MatchService) load(ctx context.Context, matchID uint) (*models.Match, error) {
	var match models.Match
	err := s.db.WithContext(ctx).
		Preload("Creator").
		Preload("Players", "status = ?", models.PlayerStatusAccepted).
		Preload("Players.Player").
		First(&match, matchID).Error
	if err != nil {
		return nil, notFoundOr(err, "Match not found")
	}
	return &match, nil
}

// visibleTo limits a match query to what the viewer may see: public
// matches, their own, matches of their groups and matches they are in.
func visibleTo(db, q *gorm.DB, viewerID uint) *gorm.DB {
	return q.Where(
		"(matches.is_public = ? OR matches.creator_id = ? OR matches.group_id IN (?) OR matches.id IN (?))",
		true,
		viewerID,
		db.Model(&models.GroupMember{}).Select("group_id").Where("user_id = ?", viewerID),
		db.Model(&models.MatchPlayer{}).Select("match_id").Where("player_id = ?", viewerID),
	)
}

// List returns upcoming scheduled matches visible to the viewer, soonest first.
func (s *MatchService) List(ctx context.Context, viewerID uint, f MatchFilter) ([]models.Match, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	db := s.db.WithContext(ctx)
	q := db.Model(&models.Match{}).
		Where("matches.status = ? AND matches.date > ?", models.MatchStatusScheduled, s.now().UTC())
	q = visibleTo(db, q, viewerID)

	if f.ZipCode != "" {
		q = q.Where("matches.zip_code = ?", f.ZipCode)
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(matches.title) LIKE ? OR LOWER(matches.course_name) LIKE ?", like, like)
	}

	var matches []models.Match
	err := q.Preload("Creator").
		Preload("Players", "status = ?", models.PlayerStatusAccepted).
		Preload("Players.Player").
		Order("matches.date ASC, matches.id ASC").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&matches).Error
	return matches, err
}

// Mine returns every match the user created or has a request in.
func (s *MatchService) Mine(ctx context.Context, userID uint) ([]models.Match, error) {
	db := s.db.WithContext(ctx)
	var matches []models.Match
	err := db.Where("creator_id = ? OR id IN (?)", userID,
		db.Model(&models.MatchPlayer{}).Select("match_id").Where("player_id = ?", userID)).
		Preload("Creator").
		Preload("Players").
		Preload("Players.Player").
		Order("date DESC, id DESC").
		Find(&matches).Error
	return matches, err
}

// Get returns a match with counts and the viewer's relation to it.
// Group matches are hidden from non-members who have no request in them.
func (s *MatchService) Get(ctx context.Context, viewerID, matchID uint) (*MatchDetail, error) {
	match, err := s.load(ctx, matchID)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	detail := &MatchDetail{Match: *match, ViewerStatus: ViewerNone}
	if match.CreatorID == viewerID {
		detail.ViewerStatus = ViewerCreator
	} else {
		var row models.MatchPlayer
		err := db.Where("match_id = ? AND player_id = ?", matchID, viewerID).First(&row).Error
		switch {
		case err == nil:
			detail.ViewerStatus = string(row.Status)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
	}

	if detail.ViewerStatus == ViewerNone && match.GroupID != nil {
		member, err := isGroupMember(db, *match.GroupID, viewerID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, forbidden("This match is only visible to group members")
		}
	}

	if detail.AcceptedCount, err = acceptedCount(db, matchID); err != nil {
		return nil, err
	}
	if err := db.Model(&models.MatchPlayer{}).
		Where("match_id = ? AND status = ?", matchID, models.PlayerStatusPending).
		Count(&detail.PendingCount).Error; err != nil {
		return nil, err
	}

	var room models.ChatRoom
	if err := db.Where("match_id = ?", matchID).First(&room).Error; err == nil {
		detail.ChatRoomID = room.ID
	}
	return detail, nil
}

// Update edits a scheduled match. Only the creator may call it.
func (s *MatchService) Update(ctx context.Context, userID, matchID uint, in UpdateMatchInput) (*models.Match, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	if in.Date != nil && !in.Date.After(s.now()) {
		return nil, invalid("Match date must be in the future")
	}

	var notify []uint
	var title string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var match models.Match
		if err := forUpdate(tx).First(&match, matchID).Error; err != nil {
			return notFoundOr(err, "Match not found")
		}
		if match.CreatorID != userID {
			return forbidden("Only the match creator can edit this match")
		}
		if match.Status != models.MatchStatusScheduled {
			return invalid("Only scheduled matches can be edited")
		}

		updates := map[string]interface{}{}
		if in.Title != nil {
			updates["title"] = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			updates["description"] = *in.Description
		}
		if in.CourseName != nil {
			updates["course_name"] = strings.TrimSpace(*in.CourseName)
		}
		if in.Address != nil {
			updates["address"] = *in.Address
		}
		if in.ZipCode != nil {
			updates["zip_code"] = *in.ZipCode
		}
		if in.Date != nil {
			updates["date"] = in.Date.UTC()
		}
		if in.IsPublic != nil {
			if match.GroupID != nil && *in.IsPublic {
				return invalid("Group matches cannot be public")
			}
			updates["is_public"] = *in.IsPublic
		}
		if in.MaxPlayers != nil {
			accepted, err := acceptedCount(tx, matchID)
			if err != nil {
				return err
			}
			if int64(*in.MaxPlayers) < accepted+1 {
				return invalid(fmt.Sprintf("Max players cannot be lower than the %d players already in the match", accepted+1))
			}
			updates["max_players"] = *in.MaxPlayers
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&match).Updates(updates).Error; err != nil {
			return err
		}

		title = match.Title
		if t, ok := updates["title"].(string); ok {
			title = t
		}
		return tx.Model(&models.MatchPlayer{}).
			Where("match_id = ? AND status = ?", matchID, models.PlayerStatusAccepted).
			Pluck("player_id", &notify).Error
	})
	if err != nil {
		return nil, err
	}

	if len(notify) > 0 {
		s.notifier.NotifyAll(ctx, notify, NotifyParams{
			SenderID: uintPtr(userID),
			MatchID:  uintPtr(matchID),
			Type:     models.NotificationMatchUpdated,
			Title:    "Match updated",
			Message:  fmt.Sprintf("The details of %q have changed.", title),
		})
	}
	return s.load(ctx, matchID)
}

// Delete removes a match with its players and chat. Completed matches are
// kept because ratings refer to them.
func (s *MatchService) Delete(ctx context.Context, userID, matchID uint) error {
	var notify []uint
	var match models.Match
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&match, matchID).Error; err != nil {
			return notFoundOr(err, "Match not found")
		}
		if match.CreatorID != userID {
			return forbidden("Only the match creator can delete this match")
		}
		if match.Status == models.MatchStatusCompleted {
			return invalid("Completed matches cannot be deleted")
		}
		if match.Status == models.MatchStatusScheduled {
			if err := tx.Model(&models.MatchPlayer{}).
				Where("match_id = ? AND status = ?", matchID, models.PlayerStatusAccepted).
				Pluck("player_id", &notify).Error; err != nil {
				return err
			}
		}

		roomIDs := tx.Model(&models.ChatRoom{}).Select("id").Where("match_id = ?", matchID)
		if err := tx.Where("room_id IN (?)", roomIDs).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("match_id = ?", matchID).Delete(&models.ChatRoom{}).Error; err != nil {
			return err
		}
		if err := tx.Where("match_id = ?", matchID).Delete(&models.MatchPlayer{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Notification{}).Where("match_id = ?", matchID).Update("match_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&match).Error
	})
	if err != nil {
		return err
	}

	logging.With("matches").Info().Uint("match_id", matchID).Msg("match deleted")
	if len(notify) > 0 {
		s.notifier.NotifyAll(ctx, notify, NotifyParams{
			SenderID: uintPtr(userID),
			Type:     models.NotificationMatchCancelled,
			Title:    "Match cancelled",
			Message:  fmt.Sprintf("%q on %s was cancelled by the organizer.", match.Title, match.Date.Format("Jan 2, 2006")),
		})
	}
	return nil
}

// ================== JOIN / APPROVAL WORKFLOW ==================

// Join files a pending request for the caller and notifies the creator.
func (s *MatchService) Join(ctx context.Context, userID, matchID uint) (*models.MatchPlayer, error) {
	var match models.Match
	row := &models.MatchPlayer{MatchID: matchID, PlayerID: userID, Status: models.PlayerStatusPending}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&match, matchID).Error; err != nil {
			return notFoundOr(err, "Match not found")
		}
		if !match.Date.After(s.now()) {
			return invalid("Match has already started")
		}
		if match.Status != models.MatchStatusScheduled {
			return invalid("Match is not open for joining")
		}
		if match.CreatorID == userID {
			return invalid("You cannot join your own match")
		}

		var existing int64
		if err := tx.Model(&models.MatchPlayer{}).
			Where("match_id = ? AND player_id = ?", matchID, userID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return conflict("You have already requested to join this match")
		}

		if match.GroupID != nil {
			member, err := isGroupMember(tx, *match.GroupID, userID)
			if err != nil {
				return err
			}
			if !member {
				return forbidden("This match is only open to group members")
			}
		}

		accepted, err := acceptedCount(tx, matchID)
		if err != nil {
			return err
		}
		if accepted+1 >= int64(match.MaxPlayers) {
			return invalid("Match is full")
		}

		return conflictOr(tx.Create(row).Error, "You have already requested to join this match")
	})
	if err != nil {
		return nil, err
	}

	var player models.User
	name := "A golfer"
	if err := s.db.WithContext(ctx).Select("id", "name").First(&player, userID).Error; err == nil {
		name = player.Name
	}
	s.notifier.Notify(ctx, NotifyParams{
		UserID:   match.CreatorID,
		SenderID: uintPtr(userID),
		MatchID:  uintPtr(matchID),
		Type:     models.NotificationJoinRequest,
		Title:    "New join request",
		Message:  fmt.Sprintf("%s wants to join %q.", name, match.Title),
	})
	return row, nil
}

// Leave withdraws the caller's request or seat from a scheduled match.
func (s *MatchService) Leave(ctx context.Context, userID, matchID uint) error {
	var match models.Match
	var row models.MatchPlayer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&match, matchID).Error; err != nil {
			return notFoundOr(err, "Match not found")
		}
		if err := tx.Where("match_id = ? AND player_id = ?", matchID, userID).First(&row).Error; err != nil {
			return notFoundOr(err, "You are not part of this match")
		}
		if match.Status != models.MatchStatusScheduled {
			return invalid("You can only leave scheduled matches")
		}
		return tx.Delete(&row).Error
	})
	if err != nil {
		return err
	}

	if row.Status == models.PlayerStatusAccepted {
		var player models.User
		name := "A player"
		if err := s.db.WithContext(ctx).Select("id", "name").First(&player, userID).Error; err == nil {
			name = player.Name
		}
		s.notifier.Notify(ctx, NotifyParams{
			UserID:   match.CreatorID,
			SenderID: uintPtr(userID),
			MatchID:  uintPtr(matchID),
			Type:     models.NotificationPlayerLeft,
			Title:    "A player left your match",
			Message:  fmt.Sprintf("%s left %q.", name, match.Title),
		})
	}
	return nil
}

// Requests lists pending join requests. Only the creator may call it.
func (s *MatchService) Requests(ctx context.Context, userID, matchID uint) ([]models.MatchPlayer, error) {
	db := s.db.WithContext(ctx)
	var match models.Match
	if err := db.Select("id", "creator_id").First(&match, matchID).Error; err != nil {
		return nil, notFoundOr(err, "Match not found")
	}
	if match.CreatorID != userID {
		return nil, forbidden("Only the match creator can view join requests")
	}

	var rows []models.MatchPlayer
	err := db.Preload("Player").
		Where("match_id = ? AND status = ?", matchID, models.PlayerStatusPending).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

const (
	ActionAccept  = "accept"
	ActionDecline = "decline"
)

// RespondToRequest accepts or declines a pending request. Accepting checks
// capacity again; declining deletes the row.
func (s *MatchService) RespondToRequest(ctx context.Context, userID, matchID, requestID uint, action string) (*models.MatchPlayer, error) {
	if action != ActionAccept && action != ActionDecline {
		return nil, invalid("Action must be accept or decline")
	}

	var match models.Match
	var row models.MatchPlayer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&match, matchID).Error; err != nil {
			return notFoundOr(err, "Match not found")
		}
		if match.CreatorID != userID {
			return forbidden("Only the match creator can respond to join requests")
		}
		if err := tx.Where("id = ? AND match_id = ?", requestID, matchID).First(&row).Error; err != nil {
			return notFoundOr(err, "Request not found")
		}
		if row.Status != models.PlayerStatusPending {
			return conflict("This request has already been accepted")
		}

		if action == ActionDecline {
			return tx.Delete(&row).Error
		}

		if match.Status != models.MatchStatusScheduled {
			return invalid("Match is not open for joining")
		}
		accepted, err := acceptedCount(tx, matchID)
		if err != nil {
			return err
		}
		if accepted+1 >= int64(match.MaxPlayers) {
			return invalid("Match is full")
		}
		row.Status = models.PlayerStatusAccepted
		return tx.Model(&row).Update("status", models.PlayerStatusAccepted).Error
	})
	if err != nil {
		return nil, err
	}

	p := NotifyParams{
		UserID:   row.PlayerID,
		SenderID: uintPtr(userID),
		MatchID:  uintPtr(matchID),
	}
	if action == ActionAccept {
		p.Type = models.NotificationRequestAccepted
		p.Title = "You're in!"
		p.Message = fmt.Sprintf("Your request to join %q was accepted.", match.Title)
	} else {
		p.Type = models.NotificationRequestDeclined
		p.Title = "Join request declined"
		p.Message = fmt.Sprintf("Your request to join %q was declined.", match.Title)
	}
	s.notifier.Notify(ctx, p)

	logging.With("matches").Info().
		Uint("match_id", matchID).
		Uint("player_id", row.PlayerID).
		Str("action", action).
		Msg("join request handled")
	return &row, nil
}

// UpdateStatus completes or cancels a scheduled match. The transition is
// one-way; completed and cancelled are final.
func (s *MatchService) UpdateStatus(ctx context.Context, userID, matchID uint, status models.MatchStatus) (*models.Match, error) {
	if status != models.MatchStatusCompleted && status != models.MatchStatusCancelled {
		return nil, invalid("Status must be completed or cancelled")
	}

	db := s.db.WithContext(ctx)
	var match models.Match
	if err := db.First(&match, matchID).Error; err != nil {
		return nil, notFoundOr(err, "Match not found")
	}
	if match.CreatorID != userID {
		return nil, forbidden("Only the match creator can change its status")
	}
	if match.Status.IsTerminal() {
		return nil, invalid(fmt.Sprintf("Match is already %s", match.Status))
	}

	res := db.Model(&models.Match{}).
		Where("id = ? AND status = ?", matchID, models.MatchStatusScheduled).
		Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, conflict("Match status changed, try again")
	}

	var players []uint
	if err := db.Model(&models.MatchPlayer{}).
		Where("match_id = ? AND status = ?", matchID, models.PlayerStatusAccepted).
		Pluck("player_id", &players).Error; err != nil {
		logging.With("matches").Error().Err(err).Uint("match_id", matchID).Msg("load players for status notification")
	}

	p := NotifyParams{SenderID: uintPtr(userID), MatchID: uintPtr(matchID)}
	if status == models.MatchStatusCompleted {
		p.Type = models.NotificationMatchCompleted
		p.Title = "Match completed"
		p.Message = fmt.Sprintf("%q is complete. Rate your playing partners!", match.Title)
	} else {
		p.Type = models.NotificationMatchCancelled
		p.Title = "Match cancelled"
		p.Message = fmt.Sprintf("%q was cancelled by the organizer.", match.Title)
	}
	s.notifier.NotifyAll(ctx, players, p)

	return s.load(ctx, matchID)
}

// Players returns the creator followed by the accepted players.
func (s *MatchService) Players(ctx context.Context, matchID uint) ([]models.UserSummary, error) {
	match, err := s.load(ctx, matchID)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserSummary, 0, len(match.Players)+1)
	if match.Creator != nil {
		out = append(out, match.Creator.Summary())
	}
	for _, p := range match.Players {
		if p.Player != nil {
			out = append(out, p.Player.Summary())
		}
	}
	return out, nil
}

// ParticipantIDs returns the creator and accepted player ids of a match.
func (s *MatchService) ParticipantIDs(ctx context.Context, matchID uint) ([]uint, error) {
	return participantIDs(s.db.WithContext(ctx), matchID)
}

func participantIDs(db *gorm.DB, matchID uint) ([]uint, error) {
	var match models.Match
	if err := db.Select("id", "creator_id").First(&match, matchID).Error; err != nil {
		return nil, notFoundOr(err, "Match not found")
	}
	var ids []uint
	if err := db.Model(&models.MatchPlayer{}).
		Where("match_id = ? AND status = ?", matchID, models.PlayerStatusAccepted).
		Order("id ASC").
		Pluck("player_id", &ids).Error; err != nil {
		return nil, err
	}
	return append([]uint{match.CreatorID}, ids...), nil
}

// IsParticipant reports whether the user is the creator or an accepted player.
func (s *MatchService) IsParticipant(ctx context.Context, matchID, userID uint) (bool, error) {
	ids, err := s.ParticipantIDs(ctx, matchID)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}
