// models/match.go
package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusCancelled MatchStatus = "cancelled"
)

// IsTerminal reports whether no further status change is allowed.
func (s MatchStatus) IsTerminal() bool {
	return s == MatchStatusCompleted || s == MatchStatusCancelled
}

type PlayerStatus string

const (
	PlayerStatusPending  PlayerStatus = "pending"
	PlayerStatusAccepted PlayerStatus = "accepted"
)

const DefaultMaxPlayers = 4

type Match struct {
	ID           uint          `json:"id" gorm:"primaryKey"`
	Title        string        `json:"title" gorm:"not null;size:150"`
	Description  string        `json:"description" gorm:"type:text"`
	CourseName   string        `json:"course_name" gorm:"not null;size:200"`
	Address      string        `json:"address" gorm:"size:300"`
	ZipCode      string        `json:"zip_code" gorm:"size:10;index"`
	GolfCourseID *uint         `json:"golf_course_id" gorm:"index"`
	Date         time.Time     `json:"date" gorm:"not null;index"`
	MaxPlayers   int           `json:"max_players" gorm:"not null"`
	IsPublic     bool          `json:"is_public" gorm:"index"`
	GroupID      *uint         `json:"group_id" gorm:"index"`
	Status       MatchStatus   `json:"status" gorm:"not null;size:20;index"`
	CreatorID    uint          `json:"creator_id" gorm:"not null;index"`
	Creator      *User         `json:"creator,omitempty" gorm:"foreignKey:CreatorID"`
	Players      []MatchPlayer `json:"players,omitempty" gorm:"foreignKey:MatchID"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (Match) TableName() string {
	return "matches"
}

// MatchPlayer is a join request or an accepted seat. Declined requests are
// deleted, so a row is either pending or accepted.
type MatchPlayer struct {
	ID        uint         `json:"id" gorm:"primaryKey"`
	MatchID   uint         `json:"match_id" gorm:"not null;uniqueIndex:idx_match_players_match_player"`
	PlayerID  uint         `json:"player_id" gorm:"not null;uniqueIndex:idx_match_players_match_player;index"`
	Player    *User        `json:"player,omitempty" gorm:"foreignKey:PlayerID"`
	Status    PlayerStatus `json:"status" gorm:"not null;size:20;index"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (MatchPlayer) TableName() string {
	return "match_players"
}

// Rating is one player's 1-5 score of another after a completed match.
type Rating struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	RaterID     uint      `json:"rater_id" gorm:"not null;uniqueIndex:idx_ratings_rater_rated_match"`
	Rater       *User     `json:"rater,omitempty" gorm:"foreignKey:RaterID"`
	RatedUserID uint      `json:"rated_user_id" gorm:"not null;uniqueIndex:idx_ratings_rater_rated_match;index"`
	MatchID     uint      `json:"match_id" gorm:"not null;uniqueIndex:idx_ratings_rater_rated_match;index"`
	Value       int       `json:"value" gorm:"not null"`
	Comment     string    `json:"comment" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Rating) TableName() string {
	return "ratings"
}
