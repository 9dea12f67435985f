package plans

import (
	"net/http"

	"github.com/callendar-yojung/pecal-sub002/db"
	"github.com/callendar-yojung/pecal-sub002/models"
	"github.com/callendar-yojung/pecal-sub002/store"

	"github.com/gin-gonic/gin"
)

// @Summary Create a new plan
// @Description Create a new billing plan with the provided information
// @Tags plans
// @Accept json
// @Produce json
// @Param plan body models.PlanCreate true "Plan information"
// @Security BearerAuth
// @Success 201 {object} models.Plan
// @Failure 400 {object} map[string]string "error: Invalid input"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /plans [post]
func CreatePlan(c *gin.Context) {
	var planCreate models.PlanCreate
	isWellFormatted := c.ShouldBindJSON(&planCreate)
	if isWellFormatted != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid input: " + isWellFormatted.Error(),
		})
		return
	}

	if planCreate.Price < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Price cannot be negative"})
		return
	}

	var existingPlan models.Plan
	resultInPlans := db.DB.First(&existingPlan, "name = ?", planCreate.Name)
	if resultInPlans.Error == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Plan already exists",
		})
		return
	}

	planType := planCreate.PlanType
	if planType == "" {
		planType = models.PlanPersonal
	}

	plan := models.Plan{
		Name:         planCreate.Name,
		Price:        planCreate.Price,
		MaxMembers:   planCreate.MaxMembers,
		MaxStorageMb: planCreate.MaxStorageMb,
		PlanType:     planType,
	}

	result := db.DB.Create(&plan)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error creating plan: " + result.Error.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, plan)
}

// @Summary Get all plans
// @Description Retrieve all billing plans, cheapest first
// @Tags plans
// @Produce json
// @Success 200 {array} models.Plan
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /plans [get]
func GetAllPlans(c *gin.Context) {
	plans, err := store.GetAllPlans()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, plans)
}

// @Summary Get a plan
// @Description Retrieve one billing plan by its ID
// @Tags plans
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} models.Plan
// @Failure 404 {object} map[string]string "error: Plan not found"
// @Router /plans/{id} [get]
func GetPlanByID(c *gin.Context) {
	planID := c.Param("id")

	plan, err := store.GetPlanByID(planID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if plan == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}

	c.JSON(http.StatusOK, plan)
}

// @Summary Update a plan
// @Description Update a billing plan with the provided information
// @Tags plans
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param plan body models.PlanCreate true "Updated plan information"
// @Security BearerAuth
// @Success 200 {object} models.Plan
// @Failure 400 {object} map[string]string "error: Invalid input"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 404 {object} map[string]string "error: Plan not found"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /plans/{id} [put]
func UpdatePlan(c *gin.Context) {
	planID := c.Param("id")

	var plan models.Plan

	result := db.DB.First(&plan, "id = ?", planID)
	if result.Error != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}

	var planUpdate models.PlanCreate
	isWellFormatted := c.ShouldBindJSON(&planUpdate)
	if isWellFormatted != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + isWellFormatted.Error()})
		return
	}

	if planUpdate.Price < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Price cannot be negative"})
		return
	}

	plan.Name = planUpdate.Name
	plan.Price = planUpdate.Price
	plan.MaxMembers = planUpdate.MaxMembers
	plan.MaxStorageMb = planUpdate.MaxStorageMb
	if planUpdate.PlanType != "" {
		plan.PlanType = planUpdate.PlanType
	}

	result = db.DB.Save(&plan)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating plan: " + result.Error.Error()})
		return
	}

	c.JSON(http.StatusOK, plan)
}

// @Summary Delete a plan
// @Description Delete a billing plan by its ID
// @Tags plans
// @Produce json
// @Param id path string true "Plan ID"
// @Security BearerAuth
// @Success 200 {object} map[string]string "message: Plan deleted successfully"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 404 {object} map[string]string "error: Plan not found"
// @Failure 409 {object} map[string]string "error: Plan is still in use"
// @Failure 500 {object} map[string]string "error: Error message"
// @Router /plans/{id} [delete]
func DeletePlan(c *gin.Context) {
	planID := c.Param("id")

	var plan models.Plan
	result := db.DB.First(&plan, "id = ?", planID)
	if result.Error != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}

	var activeCount int64
	if err := db.DB.Model(&models.Subscription{}).
		Where("plan_id = ? AND status = ?", planID, models.SubscriptionActive).
		Count(&activeCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error checking plan usage: " + err.Error()})
		return
	}
	if activeCount > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Plan is still in use by active subscriptions"})
		return
	}

	result = db.DB.Delete(&plan)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting plan: " + result.Error.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Plan deleted successfully"})
}
