// Package billing terminates the payment provider's interactive flows and
// exposes the recurring-billing scheduler trigger. The callbacks are hit by
// a browser redirect, so every path, including failures, must end in a
// redirect rather than an API error.
package billing

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/callendar-yojung/pecal-sub002/nicepay"

	"github.com/gin-gonic/gin"
)

// billingGateway is the outbound provider contract the handlers depend on.
// *nicepay.Client satisfies it; tests install a fake.
type billingGateway interface {
	RegisterBillingKey(tid string, orderID string, amount int, goodsName string) (*nicepay.BillingKeyResult, error)
	ApproveBilling(bid string, orderID string, amount int, goodsName string) (*nicepay.ApproveResult, error)
	ApprovePayment(tid string, orderID string, amount int) (*nicepay.ApproveResult, error)
	ExpireBillingKey(bid string, orderID string) (*nicepay.ExpireResult, error)
	VerifySignature(authToken string, amount string, signature string) bool
}

var gateway billingGateway

// SetGateway installs the provider client used by the handlers.
func SetGateway(g billingGateway) {
	gateway = g
}

// parseCallbackBody reads the provider's callback payload. The SDK is not
// consistent about the content type it sends, so the declared type selects
// the parser and a raw query-string parse is the fallback.
func parseCallbackBody(c *gin.Context) map[string]string {
	result := map[string]string{}
	contentType := c.GetHeader("Content-Type")

	switch {
	case strings.Contains(contentType, "form-data"),
		strings.Contains(contentType, "x-www-form-urlencoded"):
		if strings.Contains(contentType, "form-data") {
			form, err := c.MultipartForm()
			if err == nil {
				for key, values := range form.Value {
					if len(values) > 0 {
						result[key] = values[0]
					}
				}
			}
			return result
		}
		if err := c.Request.ParseForm(); err == nil {
			for key, values := range c.Request.PostForm {
				if len(values) > 0 {
					result[key] = values[0]
				}
			}
		}
		return result

	case strings.Contains(contentType, "application/json"):
		var parsed map[string]interface{}
		if err := c.ShouldBindJSON(&parsed); err == nil {
			for key, value := range parsed {
				result[key] = fmt.Sprintf("%v", value)
			}
		}
		return result

	default:
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return result
		}
		params, err := url.ParseQuery(string(raw))
		if err != nil {
			return result
		}
		for key, values := range params {
			if len(values) > 0 {
				result[key] = values[0]
			}
		}
		return result
	}
}

func detectLocale(c *gin.Context) string {
	if strings.Contains(c.GetHeader("Referer"), "/en/") {
		return "en"
	}
	return "ko"
}

func baseURL() string {
	return os.Getenv("APP_BASE_URL")
}

// redirectToCheckout sends the browser back to the checkout page with the
// original purchase context and a user-facing status message.
func redirectToCheckout(c *gin.Context, status string, message string) {
	params := url.Values{}
	params.Set("plan_id", c.Query("plan_id"))
	params.Set("owner_id", c.Query("owner_id"))
	params.Set("owner_type", c.Query("owner_type"))
	params.Set("nicepay", status)
	params.Set("message", message)

	location := fmt.Sprintf("%s/%s/dashboard/settings/billing/checkout?%s",
		baseURL(), detectLocale(c), params.Encode())
	c.Redirect(303, location)
}

// redirectToBilling sends the browser to the billing settings page after a
// completed flow.
func redirectToBilling(c *gin.Context) {
	location := fmt.Sprintf("%s/%s/dashboard/settings/billing?nicepay=success",
		baseURL(), detectLocale(c))
	c.Redirect(303, location)
}

// actingMemberID resolves who performed the flow: the authenticated member
// when a session is present, the owner otherwise (team checkouts may be
// payer-initiated without a session).
func actingMemberID(c *gin.Context, ownerID string) string {
	if memberID, exists := c.Get("member_id"); exists {
		if id, ok := memberID.(string); ok && id != "" {
			return id
		}
	}
	return ownerID
}

func isValidOwnerType(ownerType string) bool {
	return ownerType == "personal" || ownerType == "team"
}
