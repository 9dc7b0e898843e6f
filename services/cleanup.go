// services/cleanup.go - Periodic purge of stale rows
package services

import (
	"context"
	"time"

	"teetime/logging"
	"teetime/models"

	"gorm.io/gorm"
)

// CleanupService handles background cleanup tasks
type CleanupService struct {
	db        *gorm.DB
	retention time.Duration
	now       func() time.Time
}

// CleanupResult counts what one pass removed.
type CleanupResult struct {
	ResetTokens   int64
	Notifications int64
}

// NewCleanupService purges used or expired reset tokens and read
// notifications older than retention. A zero retention keeps notifications.
func NewCleanupService(db *gorm.DB, retention time.Duration) *CleanupService {
	return &CleanupService{db: db, retention: retention, now: time.Now}
}

// Start runs a pass every interval until ctx is cancelled.
func (s *CleanupService) Start(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
					logging.With("cleanup").Error().Err(err).Msg("cleanup pass failed")
				}
			}
		}
	}()
}

// RunOnce performs a single cleanup pass.
func (s *CleanupService) RunOnce(ctx context.Context) (CleanupResult, error) {
	var out CleanupResult
	db := s.db.WithContext(ctx)
	now := s.now().UTC()

	res := db.Where("used_at IS NOT NULL OR expires_at < ?", now).Delete(&models.PasswordResetToken{})
	if res.Error != nil {
		return out, res.Error
	}
	out.ResetTokens = res.RowsAffected

	if s.retention > 0 {
		res = db.Where("read = ? AND created_at < ?", true, now.Add(-s.retention)).Delete(&models.Notification{})
		if res.Error != nil {
			return out, res.Error
		}
		out.Notifications = res.RowsAffected
	}

	if out.ResetTokens > 0 || out.Notifications > 0 {
		logging.With("cleanup").Info().
			Int64("reset_tokens", out.ResetTokens).
			Int64("notifications", out.Notifications).
			Msg("cleanup pass")
	}
	return out, nil
}
