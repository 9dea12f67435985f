package billing

import (
	"net/http"

	"github.com/callendar-yojung/pecal-sub002/nicepay"
	"github.com/callendar-yojung/pecal-sub002/store"
	"github.com/callendar-yojung/pecal-sub002/utils"

	"github.com/gin-gonic/gin"
)

// GetActiveCard returns the connected member's stored card, masked.
// @Summary Get the stored card
// @Description Return the connected member's active billing key metadata
// @Tags billing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "billingKey: masked card info or null"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Router /billing/card [get]
func GetActiveCard(c *gin.Context) {
	memberID, exists := c.Get("member_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not authenticated"})
		return
	}

	billingKey, err := store.GetActiveBillingKey(memberID.(string))
	if err != nil {
		utils.LogErrorWithMember(memberID, err, "Error loading billing key")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching the stored card"})
		return
	}

	if billingKey == nil {
		c.JSON(http.StatusOK, gin.H{"billingKey": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"billingKey": gin.H{
		"id":           billingKey.ID,
		"cardCode":     billingKey.CardCode,
		"cardName":     billingKey.CardName,
		"cardNoMasked": billingKey.CardNoMasked,
		"createdAt":    billingKey.CreatedAt,
	}})
}

// RemoveCard expires the member's billing key at the provider and
// supersedes it locally. A provider-side expiry failure does not block the
// local removal: the key is unusable for us either way.
// @Summary Remove the stored card
// @Description Expire the billing key at the provider and mark it removed locally
// @Tags billing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "success: true"
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 404 {object} map[string]string "error: No stored card"
// @Router /billing/card [delete]
func RemoveCard(c *gin.Context) {
	memberID, exists := c.Get("member_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not authenticated"})
		return
	}

	billingKey, err := store.GetActiveBillingKey(memberID.(string))
	if err != nil {
		utils.LogErrorWithMember(memberID, err, "Error loading billing key")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching the stored card"})
		return
	}
	if billingKey == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No stored card"})
		return
	}

	if gateway != nil {
		orderID := nicepay.GenerateMoid("PECAL_EX_" + memberID.(string))
		if _, err := gateway.ExpireBillingKey(billingKey.Bid, orderID); err != nil {
			utils.LogErrorWithMember(memberID, err, "Provider key expiry failed, removing locally anyway")
		}
	}

	if _, err := store.RemoveBillingKeyByID(billingKey.ID); err != nil {
		utils.LogErrorWithMember(memberID, err, "Error removing billing key")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error removing the stored card"})
		return
	}

	utils.LogSuccessWithMember(memberID, "Billing key removed")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "The card has been removed"})
}
