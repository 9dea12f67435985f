package billing

import (
	"strconv"

	"github.com/callendar-yojung/pecal-sub002/models"
	"github.com/callendar-yojung/pecal-sub002/nicepay"
	"github.com/callendar-yojung/pecal-sub002/store"
	"github.com/callendar-yojung/pecal-sub002/utils"

	"github.com/gin-gonic/gin"
)

// RegisterBillingKeyCallback terminates the hosted card-registration flow:
// the provider redirects the browser here after the user completed its card
// form. The callback is validated in strict order (auth result, signature,
// amount against the catalog price), then the billing key is issued, the
// first charge approved, and the subscription created.
// @Summary Billing-key registration callback
// @Description Provider redirect target for the hosted card registration flow. Always responds with a redirect.
// @Tags billing
// @Accept json
// @Produce html
// @Param plan_id query string true "Plan being purchased"
// @Param owner_id query string true "Subscription owner id"
// @Param owner_type query string true "personal or team"
// @Success 303 {string} string "redirect"
// @Router /nicepay/billing/register [post]
func RegisterBillingKeyCallback(c *gin.Context) {
	planID := c.Query("plan_id")
	ownerID := c.Query("owner_id")
	ownerType := c.Query("owner_type")

	// A browser is on the other end: whatever goes wrong past this point
	// must still resolve to a redirect, never a blank error page.
	defer func() {
		if rec := recover(); rec != nil {
			utils.LogError(nil, "Panic in billing-key registration callback")
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

	// 1. Provider auth result. Anything but the success sentinel is a
	// user-facing failure (wrong card, canceled), not a server error.
	if authResultCode != nicepay.SuccessCode {
		utils.LogInfo("NicePay auth failed: " + authResultCode)
		message := body["authResultMsg"]
		if message == "" {
			message = "Card authentication failed."
		}
		redirectToCheckout(c, "failed", message)
		return
	}

	// 2. Signature. A mismatch is tampering or misconfiguration; log the
	// details server-side, tell the client nothing specific.
	if !gateway.VerifySignature(authToken, amount, signature) {
		utils.LogError(nil, "NicePay signature mismatch on registration callback")
		redirectToCheckout(c, "failed", "Payment signature verification failed.")
		return
	}

	// 3. Amount against the catalog price at approval time, so a tampered
	// amount cannot ride along with a legitimate plan id.
	plan, err := store.GetPlanByID(planID)
	if err != nil {
		utils.LogError(err, "Error loading plan in registration callback")
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

	// 4. Exchange the authenticated transaction for a billing key.
	billingResult, err := gateway.RegisterBillingKey(tid, orderID, amountValue, "Pecal "+plan.Name)
	if err != nil {
		utils.LogError(err, "Error registering billing key")
		redirectToCheckout(c, "failed", err.Error())
		return
	}

	// 5. First charge on the fresh key, with its own order id.
	payOrderID := nicepay.GenerateMoid("PECAL_AP_" + ownerID)
	payResult, err := gateway.ApproveBilling(billingResult.Bid, payOrderID, plan.Price, "Pecal "+plan.Name)
	if err != nil {
		utils.LogError(err, "Error approving first payment")
		redirectToCheckout(c, "failed", err.Error())
		return
	}

	memberID := actingMemberID(c, ownerID)

	if _, err := store.SaveBillingKey(memberID, billingResult.Bid, billingResult.CardCode, billingResult.CardName, billingResult.CardNo); err != nil {
		utils.LogErrorWithMember(memberID, err, "Error saving billing key")
		redirectToCheckout(c, "failed", "A server error occurred while processing the payment.")
		return
	}

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
		OrderID:        payOrderID,
		Tid:            payResult.Tid,
		Bid:            billingResult.Bid,
		Status:         models.PaymentSuccess,
		ResultCode:     payResult.ResultCode,
		ResultMsg:      payResult.ResultMsg,
		PaymentType:    models.PaymentFirst,
	}
	if err := store.CreatePaymentRecord(&record); err != nil {
		// The charge went through; a ledger failure is logged loudly but
		// must not bounce the user back to checkout for a paid plan.
		utils.LogErrorWithMember(memberID, err, "Error recording first payment")
	}

	utils.LogSuccessWithMember(memberID, "Billing key registered and subscription created for owner "+ownerID)
	redirectToBilling(c)
}
