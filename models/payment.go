package models

import (
	"time"
)

type PaymentStatus string

const (
	PaymentSuccess  PaymentStatus = "SUCCESS"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

type PaymentType string

const (
	PaymentFirst     PaymentType = "FIRST"
	PaymentRecurring PaymentType = "RECURRING"
	PaymentRetry     PaymentType = "RETRY"
)

// Payment is one charge attempt, success or failure. Rows are append-only:
// they are never updated or deleted, and OrderID is generated fresh for
// every attempt so the ledger doubles as the audit trail.
type Payment struct {
	ID             string        `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	SubscriptionID string        `json:"subscriptionId" gorm:"type:uuid;not null;index"`
	OwnerID        string        `json:"ownerId" gorm:"type:uuid;not null;index:idx_payments_owner"`
	OwnerType      OwnerType     `json:"ownerType" gorm:"type:varchar(20);not null;index:idx_payments_owner"`
	MemberID       string        `json:"memberId" gorm:"type:uuid"`
	PlanID         string        `json:"planId" gorm:"type:uuid"`
	Amount         int           `json:"amount" gorm:"not null"`
	OrderID        string        `json:"orderId" gorm:"uniqueIndex;not null"`
	Tid            string        `json:"tid"`
	Bid            string        `json:"-"`
	Status         PaymentStatus `json:"status" gorm:"type:varchar(20);not null"`
	ResultCode     string        `json:"resultCode"`
	ResultMsg      string        `json:"resultMsg"`
	PaymentType    PaymentType   `json:"paymentType" gorm:"type:varchar(20);not null"`
	CreatedAt      time.Time     `json:"createdAt"`
}
