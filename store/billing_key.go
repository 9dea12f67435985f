package store

import (
	"errors"

	"github.com/callendar-yojung/pecal-sub002/db"
	"github.com/callendar-yojung/pecal-sub002/models"

	"gorm.io/gorm"
)

// SaveBillingKey stores a freshly issued billing key and supersedes the
// member's previous ACTIVE one. Old keys are kept as REMOVED rows for the
// audit trail.
func SaveBillingKey(memberID string, bid string, cardCode string, cardName string, cardNoMasked string) (string, error) {
	var keyID string

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`UPDATE billing_keys SET status = ?, updated_at = NOW() WHERE member_id = ? AND status = ?`,
			models.BillingKeyRemoved, memberID, models.BillingKeyActive).Error; err != nil {
			return err
		}

		key := models.BillingKey{
			MemberID:     memberID,
			Bid:          bid,
			CardCode:     cardCode,
			CardName:     cardName,
			CardNoMasked: cardNoMasked,
			Status:       models.BillingKeyActive,
		}
		if err := tx.Create(&key).Error; err != nil {
			return err
		}
		keyID = key.ID
		return nil
	})

	return keyID, err
}

// GetActiveBillingKey returns the member's current key, or nil when the
// member has no usable card on file.
func GetActiveBillingKey(memberID string) (*models.BillingKey, error) {
	var key models.BillingKey
	err := db.DB.
		Where("member_id = ? AND status = ?", memberID, models.BillingKeyActive).
		Order("created_at DESC").
		First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func RemoveBillingKeyByID(billingKeyID string) (bool, error) {
	res := db.DB.Exec(
		`UPDATE billing_keys SET status = ?, updated_at = NOW() WHERE id = ?`,
		models.BillingKeyRemoved, billingKeyID)
	return res.RowsAffected > 0, res.Error
}

func RemoveBillingKeyByMember(memberID string) (bool, error) {
	res := db.DB.Exec(
		`UPDATE billing_keys SET status = ?, updated_at = NOW() WHERE member_id = ? AND status = ?`,
		models.BillingKeyRemoved, memberID, models.BillingKeyActive)
	return res.RowsAffected > 0, res.Error
}
