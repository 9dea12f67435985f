package models

import (
	"time"
)

type PlanType string

const (
	PlanPersonal PlanType = "personal"
	PlanTeam     PlanType = "team"
)

type Plan struct {
	ID           string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Name         string    `json:"name" gorm:"not null"`
	Price        int       `json:"price" gorm:"not null;default:0"`
	MaxMembers   int       `json:"maxMembers"`
	MaxStorageMb int       `json:"maxStorageMb"`
	PlanType     PlanType  `json:"planType" gorm:"type:varchar(20);default:'personal'"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type PlanCreate struct {
	Name         string   `json:"name" binding:"required"`
	Price        int      `json:"price"`
	MaxMembers   int      `json:"maxMembers"`
	MaxStorageMb int      `json:"maxStorageMb"`
	PlanType     PlanType `json:"planType"`
}
