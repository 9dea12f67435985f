package store

import (
	"github.com/callendar-yojung/pecal-sub002/db"
	"github.com/callendar-yojung/pecal-sub002/models"
)

// CreatePaymentRecord appends one charge attempt to the ledger. Records are
// written once and never updated.
func CreatePaymentRecord(payment *models.Payment) error {
	return db.DB.Create(payment).Error
}

func GetPaymentsByOwner(ownerID string, ownerType models.OwnerType, limit int, offset int) ([]models.Payment, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var payments []models.Payment
	err := db.DB.
		Where("owner_id = ? AND owner_type = ?", ownerID, ownerType).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&payments).Error
	return payments, err
}

func GetPaymentsBySubscription(subscriptionID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := db.DB.
		Where("subscription_id = ?", subscriptionID).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}
