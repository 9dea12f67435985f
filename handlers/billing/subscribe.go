package billing

import (
	"net/http"

	"github.com/callendar-yojung/pecal-sub002/models"
	"github.com/callendar-yojung/pecal-sub002/nicepay"
	"github.com/callendar-yojung/pecal-sub002/store"
	"github.com/callendar-yojung/pecal-sub002/utils"

	"github.com/gin-gonic/gin"
)

type subscribeRequest struct {
	PlanID    string           `json:"planId" binding:"required"`
	OwnerID   string           `json:"ownerId" binding:"required"`
	OwnerType models.OwnerType `json:"ownerType" binding:"required"`
}

// SubscribeWithSavedCard subscribes an owner to a plan using the member's
// stored billing key. Moving to a cheaper or equal plan never charges:
// it is queued as a pending plan change for the next cycle instead.
// @Summary Subscribe using the stored card
// @Description Charge the member's saved billing key for a plan, or schedule a downgrade for the next cycle
// @Tags billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "success or scheduled"
// @Failure 400 {object} map[string]string "error: Invalid input or no stored card"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 402 {object} map[string]string "error: Charge declined"
// @Failure 404 {object} map[string]string "error: Plan not found"
// @Router /nicepay/subscribe [post]
func SubscribeWithSavedCard(c *gin.Context) {
	memberIDValue, exists := c.Get("member_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not authenticated"})
		return
	}
	memberID := memberIDValue.(string)

	var req subscribeRequest
	if !utils.ValidateRequestBody(c, &req) {
		return
	}

	if gateway == nil {
		utils.LogError(nil, "Payment gateway is not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server configuration error"})
		return
	}

	plan, err := store.GetPlanByID(req.PlanID)
	if err != nil {
		utils.LogErrorWithMember(memberID, err, "Error loading plan")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching the plan"})
		return
	}
	if plan == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}

	activeSub, err := store.GetActiveSubscriptionByOwner(req.OwnerID, req.OwnerType)
	if err != nil {
		utils.LogErrorWithMember(memberID, err, "Error loading active subscription")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching the subscription"})
		return
	}

	if activeSub != nil {
		activePrice := 0
		if activePlan, planErr := store.GetPlanByID(activeSub.PlanID); planErr == nil && activePlan != nil {
			activePrice = activePlan.Price
		}
		if plan.Price <= activePrice {
			scheduled, err := store.SchedulePlanChange(req.OwnerID, req.OwnerType, req.PlanID)
			if err != nil {
				utils.LogErrorWithMember(memberID, err, "Error scheduling plan change")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error scheduling the plan change"})
				return
			}
			utils.LogSuccessWithMember(memberID, "Plan change scheduled for owner "+req.OwnerID)
			c.JSON(http.StatusOK, gin.H{"scheduled": scheduled})
			return
		}
	}

	billingKey, err := store.GetActiveBillingKey(memberID)
	if err != nil {
		utils.LogErrorWithMember(memberID, err, "Error loading billing key")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching the stored card"})
		return
	}
	if billingKey == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No stored card; register a card first"})
		return
	}

	payOrderID := nicepay.GenerateMoid("PECAL_AP_" + req.OwnerID)
	payResult, err := gateway.ApproveBilling(billingKey.Bid, payOrderID, plan.Price, "Pecal "+plan.Name)
	if err != nil {
		utils.LogErrorWithMember(memberID, err, "Charge on saved card failed")
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
		return
	}

	subscriptionID, err := store.CreateSubscription(req.OwnerID, req.OwnerType, req.PlanID, memberID, memberID)
	if err != nil {
		utils.LogErrorWithMember(memberID, err, "Error creating subscription")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating the subscription"})
		return
	}

	record := models.Payment{
		SubscriptionID: subscriptionID,
		OwnerID:        req.OwnerID,
		OwnerType:      req.OwnerType,
		MemberID:       memberID,
		PlanID:         req.PlanID,
		Amount:         plan.Price,
		OrderID:        payOrderID,
		Tid:            payResult.Tid,
		Bid:            billingKey.Bid,
		Status:         models.PaymentSuccess,
		ResultCode:     payResult.ResultCode,
		ResultMsg:      payResult.ResultMsg,
		PaymentType:    models.PaymentFirst,
	}
	if err := store.CreatePaymentRecord(&record); err != nil {
		utils.LogErrorWithMember(memberID, err, "Error recording first payment")
	}

	utils.LogSuccessWithMember(memberID, "Subscription created with saved card for owner "+req.OwnerID)
	c.JSON(http.StatusOK, gin.H{"success": true, "usedSavedCard": true, "subscriptionId": subscriptionID})
}
