// Package testutil opens throwaway databases and seeds fixtures for tests.
package testutil

import (
	"testing"
	"time"

	"teetime/database"
	"teetime/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NewDB returns a migrated in-memory SQLite database private to the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
	db, err := database.Open(sqlite.Open(dsn), "silent")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// A single connection keeps the shared in-memory database alive and
	// serializes writes.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts a user with every email flag on.
func CreateUser(t testing.TB, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{
		Name:                   name,
		Email:                  name + "@example.com",
		Password:               "x",
		EmailOnJoinRequest:     true,
		EmailOnRequestResponse: true,
		EmailOnGroupInvite:     true,
		EmailOnChatMessage:     true,
		EmailOnMatchUpdate:     true,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

// CreateMatch inserts a scheduled public match a day ahead, with its chat room.
func CreateMatch(t testing.TB, db *gorm.DB, creator *models.User, maxPlayers int) *models.Match {
	t.Helper()
	m := &models.Match{
		Title:      "Saturday round",
		CourseName: "Pebble Creek",
		ZipCode:    "94103",
		Date:       time.Now().UTC().Add(24 * time.Hour),
		MaxPlayers: maxPlayers,
		IsPublic:   true,
		Status:     models.MatchStatusScheduled,
		CreatorID:  creator.ID,
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("create match: %v", err)
	}
	if err := db.Create(&models.ChatRoom{MatchID: m.ID}).Error; err != nil {
		t.Fatalf("create chat room: %v", err)
	}
	return m
}

// AddPlayer inserts a MatchPlayer row directly.
func AddPlayer(t testing.TB, db *gorm.DB, match *models.Match, user *models.User, status models.PlayerStatus) *models.MatchPlayer {
	t.Helper()
	p := &models.MatchPlayer{MatchID: match.ID, PlayerID: user.ID, Status: status}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("add player: %v", err)
	}
	return p
}
