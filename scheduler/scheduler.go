// Package scheduler drives one recurring-billing pass: it finds every due
// subscription and walks each through plan change, pricing, billing-key
// resolution, the charge, the ledger write and the status update, in that
// order. A subscription failure never aborts the batch.
package scheduler

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/callendar-yojung/pecal-sub002/models"
	"github.com/callendar-yojung/pecal-sub002/nicepay"
	"github.com/callendar-yojung/pecal-sub002/store"
	"github.com/callendar-yojung/pecal-sub002/utils"
	mailsmodels "github.com/callendar-yojung/pecal-sub002/utils/mails-models"
)

// MaxRetryCount is the retry budget after the first failed attempt of a
// cycle. A subscription expires once its retry count exceeds it.
const MaxRetryCount = 3

var ErrRunInProgress = errors.New("billing run already in progress")

// Gateway is the outbound charge contract the scheduler depends on.
type Gateway interface {
	ApproveBilling(bid string, orderID string, amount int, goodsName string) (*nicepay.ApproveResult, error)
}

const (
	StatusSuccess = "SUCCESS"
	StatusSkipped = "SKIPPED"
	StatusRetry   = "RETRY"
	StatusExpired = "EXPIRED"
	StatusError   = "ERROR"
)

// Result is one subscription's outcome within a run.
type Result struct {
	SubscriptionID string `json:"subscriptionId"`
	OwnerID        string `json:"ownerId"`
	Status         string `json:"status"`
	Message        string `json:"message"`
}

type Report struct {
	Processed int      `json:"processed"`
	Results   []Result `json:"results"`
}

// Runner executes billing passes. A single Runner must be shared per
// process: the run flag is what rejects overlapping invocations.
type Runner struct {
	gateway Gateway
	now     func() time.Time
	running atomic.Bool
}

func NewRunner(gateway Gateway) *Runner {
	return &Runner{
		gateway: gateway,
		now:     time.Now,
	}
}

// Run processes every due subscription once and returns the run report.
// A second Run while one is in flight returns ErrRunInProgress.
func (r *Runner) Run() (*Report, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer r.running.Store(false)

	due, err := store.GetDueSubscriptions(r.now())
	if err != nil {
		return nil, err
	}

	utils.LogInfo(fmt.Sprintf("Billing run: %d due subscriptions", len(due)))

	report := &Report{Results: make([]Result, 0, len(due))}
	for i := range due {
		report.Results = append(report.Results, r.processOne(&due[i]))
	}
	report.Processed = len(report.Results)

	utils.LogSuccess(fmt.Sprintf("Billing run completed: %d subscriptions processed", report.Processed))
	return report, nil
}

// processOne runs the five-step pipeline for a single subscription. The
// step order is load-bearing: plan change before pricing, pricing before
// the charge, the charge before the ledger write, the ledger write before
// the status update.
func (r *Runner) processOne(sub *models.Subscription) (res Result) {
	res = Result{SubscriptionID: sub.ID, OwnerID: sub.OwnerID}

	defer func() {
		if rec := recover(); rec != nil {
			utils.LogError(fmt.Errorf("%v", rec), "Panic while processing subscription "+sub.ID)
			res.Status = StatusError
			res.Message = fmt.Sprintf("%v", rec)
		}
	}()

	// A queued plan change applies even for a subscription mid-retry, so
	// the new price is what gets charged this cycle.
	if sub.PendingPlanID != nil {
		applied, err := store.ApplyPendingPlanChange(sub.ID)
		if err != nil {
			return r.errorResult(sub, err, "Error applying pending plan change")
		}
		if applied {
			sub.PlanID = *sub.PendingPlanID
		}
	}

	plan, err := store.GetPlanByID(sub.PlanID)
	if err != nil {
		return r.errorResult(sub, err, "Error loading plan")
	}
	if plan == nil {
		return r.errorResult(sub, store.ErrPlanNotFound, "Plan not found for subscription "+sub.ID)
	}

	// Free plans only move the anchor date. No gateway call, no ledger row.
	if plan.Price == 0 {
		if err := store.AdvancePaymentDate(sub.ID); err != nil {
			return r.errorResult(sub, err, "Error advancing payment date")
		}
		res.Status = StatusSkipped
		res.Message = "Free plan, date advanced"
		return res
	}

	// A missing payer or card is not retried: nothing changes without user
	// action, so the subscription expires right away.
	if sub.BillingKeyMemberID == "" {
		return r.expire(sub, plan, "No billing key member, subscription expired")
	}

	billingKey, err := store.GetActiveBillingKey(sub.BillingKeyMemberID)
	if err != nil {
		return r.errorResult(sub, err, "Error loading billing key")
	}
	if billingKey == nil {
		return r.expire(sub, plan, "No active billing key, subscription expired")
	}

	orderID := nicepay.GenerateMoid("PECAL_RC_" + sub.OwnerID)
	paymentType := models.PaymentRecurring
	if sub.RetryCount > 0 {
		paymentType = models.PaymentRetry
	}

	payResult, payErr := r.gateway.ApproveBilling(billingKey.Bid, orderID, plan.Price, "Pecal "+plan.Name)
	if payErr != nil {
		return r.handleChargeFailure(sub, plan, billingKey, orderID, paymentType, payErr)
	}

	record := models.Payment{
		SubscriptionID: sub.ID,
		OwnerID:        sub.OwnerID,
		OwnerType:      sub.OwnerType,
		MemberID:       sub.BillingKeyMemberID,
		PlanID:         sub.PlanID,
		Amount:         plan.Price,
		OrderID:        orderID,
		Tid:            payResult.Tid,
		Bid:            billingKey.Bid,
		Status:         models.PaymentSuccess,
		ResultCode:     payResult.ResultCode,
		ResultMsg:      payResult.ResultMsg,
		PaymentType:    paymentType,
	}
	if err := store.CreatePaymentRecord(&record); err != nil {
		return r.errorResult(sub, err, "Error recording successful payment")
	}

	if err := store.AdvancePaymentDate(sub.ID); err != nil {
		return r.errorResult(sub, err, "Error advancing payment date after payment")
	}

	res.Status = StatusSuccess
	res.Message = "Payment approved: " + payResult.Tid
	return res
}

func (r *Runner) handleChargeFailure(sub *models.Subscription, plan *models.Plan, billingKey *models.BillingKey, orderID string, paymentType models.PaymentType, payErr error) Result {
	utils.LogError(payErr, "Payment failed for subscription "+sub.ID)

	resultCode := ""
	var gwErr *nicepay.GatewayError
	if errors.As(payErr, &gwErr) {
		resultCode = gwErr.Code
	}

	record := models.Payment{
		SubscriptionID: sub.ID,
		OwnerID:        sub.OwnerID,
		OwnerType:      sub.OwnerType,
		MemberID:       sub.BillingKeyMemberID,
		PlanID:         sub.PlanID,
		Amount:         plan.Price,
		OrderID:        orderID,
		Bid:            billingKey.Bid,
		Status:         models.PaymentFailed,
		ResultCode:     resultCode,
		ResultMsg:      payErr.Error(),
		PaymentType:    paymentType,
	}
	if err := store.CreatePaymentRecord(&record); err != nil {
		return r.errorResult(sub, err, "Error recording failed payment")
	}

	newRetryCount, err := store.IncrementRetryCount(sub.ID)
	if err != nil {
		return r.errorResult(sub, err, "Error incrementing retry count")
	}

	if newRetryCount > MaxRetryCount {
		return r.expire(sub, plan, fmt.Sprintf("Max retries exceeded (%d), subscription expired", MaxRetryCount))
	}

	notifyPaymentFailed(sub.BillingKeyMemberID, plan.Name, newRetryCount)

	return Result{
		SubscriptionID: sub.ID,
		OwnerID:        sub.OwnerID,
		Status:         StatusRetry,
		Message:        fmt.Sprintf("Payment failed, retry %d/%d", newRetryCount, MaxRetryCount),
	}
}

func (r *Runner) expire(sub *models.Subscription, plan *models.Plan, message string) Result {
	if err := store.UpdateSubscriptionStatus(sub.ID, models.SubscriptionExpired, message); err != nil {
		return r.errorResult(sub, err, "Error expiring subscription")
	}

	notifyExpired(sub.BillingKeyMemberID, plan.Name)

	return Result{
		SubscriptionID: sub.ID,
		OwnerID:        sub.OwnerID,
		Status:         StatusExpired,
		Message:        message,
	}
}

func (r *Runner) errorResult(sub *models.Subscription, err error, message string) Result {
	utils.LogError(err, message)
	return Result{
		SubscriptionID: sub.ID,
		OwnerID:        sub.OwnerID,
		Status:         StatusError,
		Message:        err.Error(),
	}
}

// Notification hooks, replaced in tests. Mail is best effort and must never
// fail or slow down a run.
var notifyExpired = func(memberID string, planName string) {
	if memberID == "" {
		return
	}
	member, err := store.GetMemberByID(memberID)
	if err != nil || member == nil || member.Email == "" {
		return
	}
	go mailsmodels.SubscriptionExpired(member.Email, planName)
}

var notifyPaymentFailed = func(memberID string, planName string, retryCount int) {
	if memberID == "" {
		return
	}
	member, err := store.GetMemberByID(memberID)
	if err != nil || member == nil || member.Email == "" {
		return
	}
	go mailsmodels.PaymentFailed(member.Email, planName, retryCount, MaxRetryCount)
}
