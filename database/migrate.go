// database/migrate.go - Database Migration Runner
package database

import (
	"fmt"

	"teetime/logging"
	"teetime/models"

	"gorm.io/gorm"
)

// Models lists every table in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.PasswordResetToken{},
		&models.Group{},
		&models.GroupMember{},
		&models.GroupInvitation{},
		&models.GolfCourse{},
		&models.Match{},
		&models.MatchPlayer{},
		&models.ChatRoom{},
		&models.ChatMessage{},
		&models.Notification{},
		&models.Rating{},
		&models.ContactMessage{},
		&models.EmailSubscriber{},
	}
}

// Migrate runs all database migrations
func Migrate(conn *gorm.DB) error {
	logging.Info().Msg("Running database migrations")

	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if conn.Dialector.Name() == "postgres" {
		if err := createPostgresIndexes(conn); err != nil {
			return err
		}
	}

	logging.Info().Msg("All migrations completed successfully")
	return nil
}

// createPostgresIndexes adds indexes GORM tags cannot express.
func createPostgresIndexes(conn *gorm.DB) error {
	statements := []string{
		"CREATE INDEX IF NOT EXISTS idx_matches_upcoming ON matches(date) WHERE status = 'scheduled'",
		"CREATE INDEX IF NOT EXISTS idx_golf_courses_name_lower ON golf_courses(lower(name) text_pattern_ops)",
		"CREATE INDEX IF NOT EXISTS idx_chat_messages_room_created ON chat_messages(room_id, created_at, id)",
		"CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications(user_id) WHERE read = false",
	}
	for _, stmt := range statements {
		if err := conn.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
