// Package store holds the billing subsystem's data-access contracts over
// the shared gorm handle. Single-row state transitions are expressed as one
// guarded UPDATE each, so a scheduled tick and a manual admin action cannot
// interleave reads and writes on the same subscription.
package store

import (
	"errors"
	"time"

	"github.com/callendar-yojung/pecal-sub002/db"
	"github.com/callendar-yojung/pecal-sub002/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrPlanNotFound = errors.New("plan not found")

// GetDueSubscriptions returns the active subscriptions whose next payment
// date has arrived, oldest first.
func GetDueSubscriptions(now time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := db.DB.
		Where("status = ? AND next_payment_date IS NOT NULL AND next_payment_date <= ?",
			models.SubscriptionActive, now).
		Order("next_payment_date ASC").
		Find(&subs).Error
	return subs, err
}

func GetSubscriptionByID(subscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := db.DB.First(&sub, "id = ?", subscriptionID).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func GetSubscriptionsByOwner(ownerID string, ownerType models.OwnerType) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := db.DB.
		Where("owner_id = ? AND owner_type = ?", ownerID, ownerType).
		Order("started_at DESC").
		Find(&subs).Error
	return subs, err
}

func GetActiveSubscriptionByOwner(ownerID string, ownerType models.OwnerType) (*models.Subscription, error) {
	var sub models.Subscription
	err := db.DB.
		Where("owner_id = ? AND owner_type = ? AND status = ?",
			ownerID, ownerType, models.SubscriptionActive).
		Order("started_at DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateSubscription starts billing an owner on a plan. At most one ACTIVE
// subscription exists per (owner, owner type): buying the same plan again is
// a no-op, a more expensive plan replaces the current subscription
// immediately, and a cheaper or equal one is queued as a pending plan change
// for the next cycle. Returns the id of the subscription that ends up
// carrying the plan.
func CreateSubscription(ownerID string, ownerType models.OwnerType, planID string, createdBy string, billingKeyMemberID string) (string, error) {
	var subscriptionID string

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var plan models.Plan
		if err := tx.First(&plan, "id = ?", planID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPlanNotFound
			}
			return err
		}

		var current models.Subscription
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("owner_id = ? AND owner_type = ? AND status = ?",
				ownerID, ownerType, models.SubscriptionActive).
			Order("started_at DESC").
			First(&current).Error

		if err == nil {
			if current.PlanID == planID {
				subscriptionID = current.ID
				return nil
			}

			currentPrice := 0
			var currentPlan models.Plan
			if planErr := tx.First(&currentPlan, "id = ?", current.PlanID).Error; planErr == nil {
				currentPrice = currentPlan.Price
			}

			if plan.Price <= currentPrice {
				// Downgrade or same price: take effect at the next cycle.
				if err := tx.Exec(
					`UPDATE subscriptions
					 SET pending_plan_id = ?, pending_change_date = next_payment_date, updated_at = NOW()
					 WHERE id = ?`,
					planID, current.ID).Error; err != nil {
					return err
				}
				subscriptionID = current.ID
				return nil
			}

			// Upgrade: end the current subscription now, replacement below.
			if err := tx.Exec(
				`UPDATE subscriptions
				 SET status = ?, ended_at = NOW(), next_payment_date = NULL,
				     ended_reason = 'UPGRADED', pending_plan_id = NULL,
				     pending_change_date = NULL, updated_at = NOW()
				 WHERE id = ?`,
				models.SubscriptionCanceled, current.ID).Error; err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if createdBy == "" {
			createdBy = ownerID
		}
		if billingKeyMemberID == "" {
			billingKeyMemberID = createdBy
		}

		now := time.Now()
		next := now.AddDate(0, 1, 0)
		sub := models.Subscription{
			OwnerID:            ownerID,
			OwnerType:          ownerType,
			PlanID:             planID,
			Status:             models.SubscriptionActive,
			StartedAt:          now,
			NextPaymentDate:    &next,
			BillingKeyMemberID: billingKeyMemberID,
			CreatedBy:          createdBy,
		}
		if err := tx.Create(&sub).Error; err != nil {
			return err
		}
		subscriptionID = sub.ID
		return nil
	})

	return subscriptionID, err
}

// SchedulePlanChange queues a plan switch for the owner's active
// subscription, effective at its next payment date.
func SchedulePlanChange(ownerID string, ownerType models.OwnerType, planID string) (bool, error) {
	res := db.DB.Exec(
		`UPDATE subscriptions
		 SET pending_plan_id = ?, pending_change_date = next_payment_date, updated_at = NOW()
		 WHERE owner_id = ? AND owner_type = ? AND status = ?`,
		planID, ownerID, ownerType, models.SubscriptionActive)
	return res.RowsAffected > 0, res.Error
}

// ApplyPendingPlanChange swaps the active plan to the pending one when the
// change date has arrived. The guard lives in the statement itself so two
// concurrent callers cannot apply the same change twice.
func ApplyPendingPlanChange(subscriptionID string) (bool, error) {
	res := db.DB.Exec(
		`UPDATE subscriptions
		 SET plan_id = pending_plan_id, pending_plan_id = NULL,
		     pending_change_date = NULL, updated_at = NOW()
		 WHERE id = ?
		   AND pending_plan_id IS NOT NULL
		   AND pending_change_date IS NOT NULL
		   AND pending_change_date <= NOW()`,
		subscriptionID)
	return res.RowsAffected > 0, res.Error
}

// AdvancePaymentDate pushes the next payment date one billing period out
// and resets the retry counter. Called after a paid cycle or a zero-price
// skip, never after a failure.
func AdvancePaymentDate(subscriptionID string) error {
	return db.DB.Exec(
		`UPDATE subscriptions
		 SET next_payment_date = next_payment_date + INTERVAL '1 month',
		     retry_count = 0, updated_at = NOW()
		 WHERE id = ?`,
		subscriptionID).Error
}

// IncrementRetryCount bumps the retry counter and returns the new value.
func IncrementRetryCount(subscriptionID string) (int, error) {
	var count int
	err := db.DB.Raw(
		`UPDATE subscriptions
		 SET retry_count = retry_count + 1, updated_at = NOW()
		 WHERE id = ?
		 RETURNING retry_count`,
		subscriptionID).Scan(&count).Error
	return count, err
}

// UpdateSubscriptionStatus moves a subscription to the given lifecycle
// status. Terminal states record the end time and reason.
func UpdateSubscriptionStatus(subscriptionID string, status models.SubscriptionStatus, reason string) error {
	if status == models.SubscriptionCanceled || status == models.SubscriptionExpired {
		return db.DB.Exec(
			`UPDATE subscriptions
			 SET status = ?, ended_at = NOW(), ended_reason = ?, updated_at = NOW()
			 WHERE id = ?`,
			status, reason, subscriptionID).Error
	}
	return db.DB.Exec(
		`UPDATE subscriptions
		 SET status = ?, ended_at = NULL, ended_reason = '', updated_at = NOW()
		 WHERE id = ?`,
		status, subscriptionID).Error
}

// CancelSubscription ends a subscription on request. Canceled subscriptions
// never resume and never come up in the due query again.
func CancelSubscription(subscriptionID string) (bool, error) {
	res := db.DB.Exec(
		`UPDATE subscriptions
		 SET status = ?, ended_at = NOW(), next_payment_date = NULL, updated_at = NOW()
		 WHERE id = ?`,
		models.SubscriptionCanceled, subscriptionID)
	return res.RowsAffected > 0, res.Error
}
