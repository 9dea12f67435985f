package models

import (
	"time"
)

type BillingKeyStatus string

const (
	BillingKeyActive  BillingKeyStatus = "ACTIVE"
	BillingKeyRemoved BillingKeyStatus = "REMOVED"
)

// BillingKey is a tokenized card credential (the provider's BID). At most
// one ACTIVE key exists per member; registering a new one supersedes the
// previous key instead of deleting it.
type BillingKey struct {
	ID           string           `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	MemberID     string           `json:"memberId" gorm:"type:uuid;not null;index"`
	Bid          string           `json:"-" gorm:"not null"`
	CardCode     string           `json:"cardCode"`
	CardName     string           `json:"cardName"`
	CardNoMasked string           `json:"cardNoMasked"`
	Status       BillingKeyStatus `json:"status" gorm:"type:varchar(20);default:'ACTIVE'"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}
