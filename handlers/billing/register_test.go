package billing

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/callendar-yojung/pecal-sub002/nicepay"
	"github.com/callendar-yojung/pecal-sub002/testutils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// stubGateway satisfies both the handler gateway contract and the
// scheduler's. Zero value approves everything.
type stubGateway struct {
	registerErr      error
	approveErr       error
	signatureInvalid bool

	registerCalls int
	approveCalls  int
	expireCalls   int
}

func (g *stubGateway) RegisterBillingKey(tid string, orderID string, amount int, goodsName string) (*nicepay.BillingKeyResult, error) {
	g.registerCalls++
	if g.registerErr != nil {
		return nil, g.registerErr
	}
	return &nicepay.BillingKeyResult{
		Bid:        "bid-new",
		CardCode:   "04",
		CardName:   "Samsung",
		CardNo:     "1234-12**-****-5678",
		ResultCode: nicepay.SuccessCode,
		ResultMsg:  "OK",
	}, nil
}

func (g *stubGateway) ApproveBilling(bid string, orderID string, amount int, goodsName string) (*nicepay.ApproveResult, error) {
	g.approveCalls++
	if g.approveErr != nil {
		return nil, g.approveErr
	}
	return &nicepay.ApproveResult{
		Tid:        "tid-approved",
		Amount:     amount,
		ResultCode: nicepay.SuccessCode,
		ResultMsg:  "OK",
	}, nil
}

func (g *stubGateway) ApprovePayment(tid string, orderID string, amount int) (*nicepay.ApproveResult, error) {
	g.approveCalls++
	if g.approveErr != nil {
		return nil, g.approveErr
	}
	return &nicepay.ApproveResult{
		Tid:        tid,
		Amount:     amount,
		ResultCode: nicepay.SuccessCode,
		ResultMsg:  "OK",
	}, nil
}

func (g *stubGateway) ExpireBillingKey(bid string, orderID string) (*nicepay.ExpireResult, error) {
	g.expireCalls++
	return &nicepay.ExpireResult{ResultCode: nicepay.SuccessCode, ResultMsg: "OK"}, nil
}

func (g *stubGateway) VerifySignature(authToken string, amount string, signature string) bool {
	return !g.signatureInvalid
}

func registerRouter() *gin.Engine {
	r := testutils.SetupTestRouter()
	r.POST("/nicepay/billing/register", RegisterBillingKeyCallback)
	return r
}

func callbackRequest(path string, query url.Values, form url.Values) *http.Request {
	req, _ := http.NewRequest(http.MethodPost,
		path+"?"+query.Encode(),
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func registerRequest(query url.Values, form url.Values) *http.Request {
	return callbackRequest("/nicepay/billing/register", query, form)
}

func checkoutQuery() url.Values {
	return url.Values{
		"plan_id":    {"plan-pro"},
		"owner_id":   {"owner-1"},
		"owner_type": {"personal"},
	}
}

func TestRegisterCallback_AuthFailureRedirectsToCheckout(t *testing.T) {
	t.Setenv("APP_BASE_URL", "http://front.test")
	SetGateway(&stubGateway{})
	defer SetGateway(nil)

	r := registerRouter()
	form := url.Values{
		"authResultCode": {"3001"},
		"authResultMsg":  {"Card authentication canceled"},
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, registerRequest(checkoutQuery(), form))

	assert.Equal(t, http.StatusSeeOther, resp.Code)
	location := resp.Header().Get("Location")
	assert.Contains(t, location, "http://front.test/ko/dashboard/settings/billing/checkout")
	assert.Contains(t, location, "nicepay=failed")
	assert.Contains(t, location, url.QueryEscape("Card authentication canceled"))
}

func TestRegisterCallback_SignatureMismatchNoWrites(t *testing.T) {
	t.Setenv("APP_BASE_URL", "http://front.test")
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	stub := &stubGateway{signatureInvalid: true}
	SetGateway(stub)
	defer SetGateway(nil)

	r := registerRouter()
	form := url.Values{
		"authResultCode": {"0000"},
		"tid":            {"tid-abc"},
		"authToken":      {"token"},
		"signature":      {"forged"},
		"amount":         {"9900"},
		"orderId":        {"order-1"},
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, registerRequest(checkoutQuery(), form))

	assert.Equal(t, http.StatusSeeOther, resp.Code)
	assert.Contains(t, resp.Header().Get("Location"), "nicepay=failed")
	assert.Equal(t, 0, stub.registerCalls)
	// Nothing may touch the database on a forged callback.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterCallback_AmountMismatchRejected(t *testing.T) {
	t.Setenv("APP_BASE_URL", "http://front.test")
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT \* FROM "plans" WHERE id = \$1`).
		WithArgs("plan-pro", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price"}).
			AddRow("plan-pro", "Pro", 9900))

	stub := &stubGateway{}
	SetGateway(stub)
	defer SetGateway(nil)

	r := registerRouter()
	form := url.Values{
		"authResultCode": {"0000"},
		"tid":            {"tid-abc"},
		"authToken":      {"token"},
		"signature":      {"sig"},
		"amount":         {"100"},
		"orderId":        {"order-1"},
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, registerRequest(checkoutQuery(), form))

	assert.Equal(t, http.StatusSeeOther, resp.Code)
	assert.Contains(t, resp.Header().Get("Location"), "nicepay=failed")
	assert.Equal(t, 0, stub.registerCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterCallback_Success(t *testing.T) {
	t.Setenv("APP_BASE_URL", "http://front.test")
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT \* FROM "plans" WHERE id = \$1`).
		WithArgs("plan-pro", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price"}).
			AddRow("plan-pro", "Pro", 9900))

	// SaveBillingKey supersedes the previous key and inserts the new one.
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE billing_keys SET status = \$1, updated_at = NOW\(\) WHERE member_id = \$2 AND status = \$3`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO "billing_keys" (.+) RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("key-uuid"))
	mock.ExpectCommit()

	// CreateSubscription: plan lookup, no current subscription, insert.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "plans" WHERE id = \$1`).
		WithArgs("plan-pro", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price"}).
			AddRow("plan-pro", "Pro", 9900))
	mock.ExpectQuery(`SELECT \* FROM "subscriptions" WHERE owner_id = \$1 AND owner_type = \$2 AND status = \$3 (.+) FOR UPDATE`).
		WillReturnError(gorm.ErrRecordNotFound)
	mock.ExpectQuery(`INSERT INTO "subscriptions" (.+) RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sub-uuid"))
	mock.ExpectCommit()

	// First payment in the ledger.
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "payments" (.+) RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("payment-uuid"))
	mock.ExpectCommit()

	stub := &stubGateway{}
	SetGateway(stub)
	defer SetGateway(nil)

	r := registerRouter()
	form := url.Values{
		"authResultCode": {"0000"},
		"tid":            {"tid-abc"},
		"authToken":      {"token"},
		"signature":      {"sig"},
		"amount":         {"9900"},
		"orderId":        {"order-1"},
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, registerRequest(checkoutQuery(), form))

	assert.Equal(t, http.StatusSeeOther, resp.Code)
	assert.Equal(t, "http://front.test/ko/dashboard/settings/billing?nicepay=success",
		resp.Header().Get("Location"))
	assert.Equal(t, 1, stub.registerCalls)
	assert.Equal(t, 1, stub.approveCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterCallback_LocaleFromReferer(t *testing.T) {
	t.Setenv("APP_BASE_URL", "http://front.test")
	SetGateway(&stubGateway{})
	defer SetGateway(nil)

	r := registerRouter()
	form := url.Values{"authResultCode": {"3001"}}
	req := registerRequest(checkoutQuery(), form)
	req.Header.Set("Referer", "http://front.test/en/dashboard/settings/billing/checkout")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Contains(t, resp.Header().Get("Location"), "http://front.test/en/dashboard")
}

func TestRegisterCallback_InvalidOwnerTypeRejected(t *testing.T) {
	t.Setenv("APP_BASE_URL", "http://front.test")
	SetGateway(&stubGateway{})
	defer SetGateway(nil)

	query := checkoutQuery()
	query.Set("owner_type", "company")

	r := registerRouter()
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, registerRequest(query, url.Values{}))

	assert.Equal(t, http.StatusSeeOther, resp.Code)
	assert.Contains(t, resp.Header().Get("Location"), "nicepay=failed")
}
