package store

import (
	"errors"

	"github.com/callendar-yojung/pecal-sub002/db"
	"github.com/callendar-yojung/pecal-sub002/models"

	"gorm.io/gorm"
)

// GetPlanByID looks up pricing facts in the plan catalog. Returns nil when
// the plan does not exist.
func GetPlanByID(planID string) (*models.Plan, error) {
	var plan models.Plan
	err := db.DB.First(&plan, "id = ?", planID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func GetAllPlans() ([]models.Plan, error) {
	var plans []models.Plan
	err := db.DB.Order("price ASC").Find(&plans).Error
	return plans, err
}

// GetMemberByID resolves a member for payer email lookups. The members
// table is owned by the workspace service; billing never writes it.
func GetMemberByID(memberID string) (*models.Member, error) {
	var member models.Member
	err := db.DB.First(&member, "id = ?", memberID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}
