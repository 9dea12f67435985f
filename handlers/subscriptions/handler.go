package subscriptions

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/callendar-yojung/pecal-sub002/models"
	"github.com/callendar-yojung/pecal-sub002/store"
	"github.com/callendar-yojung/pecal-sub002/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetSubscriptions lists an owner's subscriptions, or just the active one
// with ?active=true.
// @Summary List an owner's subscriptions
// @Description Return all subscriptions of an owner, or only the active one
// @Tags subscriptions
// @Produce json
// @Param owner_id query string true "Owner id"
// @Param owner_type query string true "personal or team"
// @Param active query bool false "Only the active subscription"
// @Security BearerAuth
// @Success 200 {array} models.Subscription
// @Failure 400 {object} map[string]string "error: Invalid parameters"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Router /subscriptions [get]
func GetSubscriptions(c *gin.Context) {
	memberID, exists := c.Get("member_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not authenticated"})
		return
	}

	ownerID := c.Query("owner_id")
	ownerType := models.OwnerType(c.Query("owner_type"))
	if ownerID == "" || (ownerType != models.OwnerPersonal && ownerType != models.OwnerTeam) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner_id and owner_type are required"})
		return
	}

	if c.Query("active") == "true" {
		sub, err := store.GetActiveSubscriptionByOwner(ownerID, ownerType)
		if err != nil {
			utils.LogErrorWithMember(memberID, err, "Error fetching active subscription")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching subscriptions"})
			return
		}
		c.JSON(http.StatusOK, sub)
		return
	}

	subs, err := store.GetSubscriptionsByOwner(ownerID, ownerType)
	if err != nil {
		utils.LogErrorWithMember(memberID, err, "Error fetching subscriptions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching subscriptions"})
		return
	}

	utils.LogSuccessWithMember(memberID, "Subscriptions listed for owner "+ownerID)
	c.JSON(http.StatusOK, subs)
}

// GetSubscriptionDetail returns one subscription.
// @Summary Details of a subscription
// @Description Return the detailed information of a subscription
// @Tags subscriptions
// @Produce json
// @Param subscriptionId path string true "Subscription id"
// @Security BearerAuth
// @Success 200 {object} models.Subscription
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 404 {object} map[string]string "error: Subscription not found"
// @Router /subscriptions/{subscriptionId} [get]
func GetSubscriptionDetail(c *gin.Context) {
	subscriptionID := c.Param("subscriptionId")

	if _, err := uuid.Parse(subscriptionID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscription ID"})
		return
	}

	memberID, exists := c.Get("member_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not authenticated"})
		return
	}

	sub, err := store.GetSubscriptionByID(subscriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
			return
		}
		utils.LogErrorWithMember(memberID, err, "Error fetching subscription")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching the subscription"})
		return
	}

	c.JSON(http.StatusOK, sub)
}

// CancelSubscription ends a subscription on the owner's request. Canceled
// subscriptions never bill again and never resume.
// @Summary Cancel a subscription
// @Description Cancel a subscription and stop its billing
// @Tags subscriptions
// @Produce json
// @Param subscriptionId path string true "Subscription id"
// @Security BearerAuth
// @Success 200 {object} map[string]string "message: Subscription canceled successfully"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 404 {object} map[string]string "error: Subscription not found"
// @Router /subscriptions/{subscriptionId} [delete]
func CancelSubscription(c *gin.Context) {
	subscriptionID := c.Param("subscriptionId")

	if _, err := uuid.Parse(subscriptionID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscription ID"})
		return
	}

	memberID, exists := c.Get("member_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not authenticated"})
		return
	}

	canceled, err := store.CancelSubscription(subscriptionID)
	if err != nil {
		utils.LogErrorWithMember(memberID, err, "Error canceling subscription")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error canceling the subscription"})
		return
	}
	if !canceled {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
		return
	}

	utils.LogSuccessWithMember(memberID, "Subscription canceled: "+subscriptionID)
	c.JSON(http.StatusOK, gin.H{"message": "Subscription canceled successfully"})
}

// GetSubscriptionPayments returns the charge-attempt history of one
// subscription, newest first.
// @Summary Payment history of a subscription
// @Description Return every charge attempt recorded for a subscription
// @Tags subscriptions
// @Produce json
// @Param subscriptionId path string true "Subscription id"
// @Security BearerAuth
// @Success 200 {array} models.Payment
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Router /subscriptions/{subscriptionId}/payments [get]
func GetSubscriptionPayments(c *gin.Context) {
	subscriptionID := c.Param("subscriptionId")

	if _, err := uuid.Parse(subscriptionID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscription ID"})
		return
	}

	memberID, exists := c.Get("member_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not authenticated"})
		return
	}

	payments, err := store.GetPaymentsBySubscription(subscriptionID)
	if err != nil {
		utils.LogErrorWithMember(memberID, err, "Error fetching payments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching payments"})
		return
	}

	c.JSON(http.StatusOK, payments)
}

// GetOwnerPayments returns an owner's paged payment history.
// @Summary Payment history of an owner
// @Description Return the owner's charge attempts, newest first
// @Tags subscriptions
// @Produce json
// @Param owner_id query string true "Owner id"
// @Param owner_type query string true "personal or team"
// @Param limit query int false "Page size (default 50, max 200)"
// @Param offset query int false "Page offset"
// @Security BearerAuth
// @Success 200 {array} models.Payment
// @Failure 400 {object} map[string]string "error: Invalid parameters"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Router /payments [get]
func GetOwnerPayments(c *gin.Context) {
	memberID, exists := c.Get("member_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not authenticated"})
		return
	}

	ownerID := c.Query("owner_id")
	ownerType := models.OwnerType(c.Query("owner_type"))
	if ownerID == "" || (ownerType != models.OwnerPersonal && ownerType != models.OwnerTeam) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner_id and owner_type are required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	payments, err := store.GetPaymentsByOwner(ownerID, ownerType, limit, offset)
	if err != nil {
		utils.LogErrorWithMember(memberID, err, "Error fetching payments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching payments"})
		return
	}

	c.JSON(http.StatusOK, payments)
}
