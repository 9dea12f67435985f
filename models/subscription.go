package models

import (
	"time"
)

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "ACTIVE"
	SubscriptionCanceled SubscriptionStatus = "CANCELED"
	SubscriptionExpired  SubscriptionStatus = "EXPIRED"
)

type OwnerType string

const (
	OwnerPersonal OwnerType = "personal"
	OwnerTeam     OwnerType = "team"
)

type Subscription struct {
	ID       string             `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OwnerID  string             `json:"ownerId" gorm:"type:uuid;not null;index:idx_subscriptions_owner"`
	OwnerType OwnerType         `json:"ownerType" gorm:"type:varchar(20);not null;index:idx_subscriptions_owner"`
	PlanID   string             `json:"planId" gorm:"type:uuid;not null"`
	Status   SubscriptionStatus `json:"status" gorm:"type:varchar(20);default:'ACTIVE'"`

	StartedAt   time.Time  `json:"startedAt"`
	EndedAt     *time.Time `json:"endedAt"`
	EndedReason string     `json:"endedReason,omitempty"`

	// NextPaymentDate is the billing-cycle anchor: the subscription is due
	// once it is in the past. NULL for subscriptions that no longer bill.
	NextPaymentDate *time.Time `json:"nextPaymentDate"`

	// BillingKeyMemberID designates whose stored card pays for this
	// subscription. A team's payer may differ from the team owner.
	BillingKeyMemberID string `json:"billingKeyMemberId,omitempty" gorm:"type:uuid"`

	RetryCount int `json:"retryCount" gorm:"default:0"`

	// Pending plan change, applied by the scheduler at the next cycle.
	PendingPlanID     *string    `json:"pendingPlanId,omitempty" gorm:"type:uuid"`
	PendingChangeDate *time.Time `json:"pendingChangeDate,omitempty"`

	CreatedBy string    `json:"createdBy" gorm:"type:uuid"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type SubscriptionCreate struct {
	OwnerID   string    `json:"ownerId" binding:"required"`
	OwnerType OwnerType `json:"ownerType" binding:"required"`
	PlanID    string    `json:"planId" binding:"required"`
}
