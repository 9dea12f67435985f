package billing

import (
	"strconv"

	"github.com/callendar-yojung/pecal-sub002/models"
	"github.com/callendar-yojung/pecal-sub002/nicepay"
	"github.com/callendar-yojung/pecal-sub002/store"
	"github.com/callendar-yojung/pecal-sub002/utils"

	"github.com/gin-gonic/gin"
)

// ApproveCheckoutCallback terminates the one-shot checkout flow: same
// validation ladder as the registration callback, then the provider's
// approval endpoint is called for the authenticated transaction and the
// subscription plus its first ledger entry are created.
// @Summary One-shot checkout approval callback
// @Description Provider redirect target for the standard checkout flow. Always responds with a redirect.
// @Tags billing
// @Accept json
// @Produce html
// @Param plan_id query string true "Plan being purchased"
// @Param owner_id query string true "Subscription owner id"
// @Param owner_type query string true "personal or team"
// @Success 303 {string} string "redirect"
// @Router /nicepay/approve [post]
func ApproveCheckoutCallback(c *gin.Context) {
	planID := c.Query("plan_id")
	ownerID := c.Query("owner_id")
	ownerType := c.Query("owner_type")

	defer func() {
		if rec := recover(); rec != nil {
			utils.LogError(nil, "Panic in checkout approval callback")
			redirectToCheckout(c, "failed", "A server error occurred while processing the payment.")
		}
	}()

	if gateway == nil {
		utils.LogError(nil, "Payment gateway is not configured")
		redirectToCheckout(c, "failed", "The payment service is not configured correctly.")
		return
	}

	if planID == "" || ownerID == "" || !isValidOwnerType(ownerType) {
		redirectToCheckout(c, "failed", "The payment parameters are not valid.")
		return
	}

	body := parseCallbackBody(c)
	authResultCode := body["authResultCode"]
	tid := body["tid"]
	authToken := body["authToken"]
	signature := body["signature"]
	amount := body["amount"]
	orderID := body["orderId"]

	if authResultCode != nicepay.SuccessCode {
		utils.LogInfo("NicePay auth failed: " + authResultCode)
		message := body["authResultMsg"]
		if message == "" {
			message = "Card authentication failed."
		}
		redirectToCheckout(c, "failed", message)
		return
	}

	if !gateway.VerifySignature(authToken, amount, signature) {
		utils.LogError(nil, "NicePay signature mismatch on approval callback")
		redirectToCheckout(c, "failed", "Payment signature verification failed.")
		return
	}

	plan, err := store.GetPlanByID(planID)
	if err != nil {
		utils.LogError(err, "Error loading plan in approval callback")
		redirectToCheckout(c, "failed", "A server error occurred while processing the payment.")
		return
	}
	if plan == nil {
		redirectToCheckout(c, "failed", "Plan not found.")
		return
	}

	amountValue, err := strconv.Atoi(amount)
	if err != nil || amountValue != plan.Price {
		utils.LogError(nil, "NicePay amount mismatch: "+amount+" vs plan price")
		redirectToCheckout(c, "failed", "The payment amount does not match.")
		return
	}

	payResult, err := gateway.ApprovePayment(tid, orderID, amountValue)
	if err != nil {
		utils.LogError(err, "Error approving payment")
		redirectToCheckout(c, "failed", err.Error())
		return
	}

	memberID := actingMemberID(c, ownerID)

	subscriptionID, err := store.CreateSubscription(ownerID, models.OwnerType(ownerType), planID, memberID, memberID)
	if err != nil {
		utils.LogErrorWithMember(memberID, err, "Error creating subscription")
		redirectToCheckout(c, "failed", "A server error occurred while processing the payment.")
		return
	}

	record := models.Payment{
		SubscriptionID: subscriptionID,
		OwnerID:        ownerID,
		OwnerType:      models.OwnerType(ownerType),
		MemberID:       memberID,
		PlanID:         planID,
		Amount:         plan.Price,
		OrderID:        orderID,
		Tid:            payResult.Tid,
		Status:         models.PaymentSuccess,
		ResultCode:     payResult.ResultCode,
		ResultMsg:      payResult.ResultMsg,
		PaymentType:    models.PaymentFirst,
	}
	if err := store.CreatePaymentRecord(&record); err != nil {
		utils.LogErrorWithMember(memberID, err, "Error recording first payment")
	}

	utils.LogSuccessWithMember(memberID, "Checkout approved and subscription created for owner "+ownerID)
	redirectToBilling(c)
}
