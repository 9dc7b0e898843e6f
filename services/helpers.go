package services

import (
	"teetime/models"
	"teetime/validation"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// validate runs struct validation and reports the failure as ErrInvalid.
func validate(v interface{}) error {
	if err := validation.Struct(v); err != nil {
		return invalid(err.Error())
	}
	return nil
}

// forUpdate locks the selected rows until the transaction ends. SQLite
// has no row locks and serializes writers instead.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func isGroupMember(db *gorm.DB, groupID, userID uint) (bool, error) {
	var count int64
	err := db.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	return count > 0, err
}

func acceptedCount(db *gorm.DB, matchID uint) (int64, error) {
	var count int64
	err := db.Model(&models.MatchPlayer{}).
		Where("match_id = ? AND status = ?", matchID, models.PlayerStatusAccepted).
		Count(&count).Error
	return count, err
}

func uintPtr(v uint) *uint {
	return &v
}
