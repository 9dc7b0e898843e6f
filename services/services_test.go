package services

import (
	"errors"
	"testing"

	"teetime/models"
	"teetime/testutil"

	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	mail     *testutil.Mailer
	notifier *NotificationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	mail := &testutil.Mailer{}
	return &fixture{db: db, mail: mail, notifier: NewNotificationService(db, mail, "http://app.test/")}
}

// wantKind fails unless err is a service error of the given kind and message.
func wantKind(t *testing.T, err, kind error, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error %q, got nil", kind, msg)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v error, got %v", kind, err)
	}
	if msg != "" && err.Error() != msg {
		t.Fatalf("expected message %q, got %q", msg, err.Error())
	}
}

func notificationsFor(t *testing.T, db *gorm.DB, userID uint) []models.Notification {
	t.Helper()
	var out []models.Notification
	if err := db.Where("user_id = ?", userID).Order("id ASC").Find(&out).Error; err != nil {
		t.Fatalf("load notifications: %v", err)
	}
	return out
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
