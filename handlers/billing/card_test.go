package billing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/callendar-yojung/pecal-sub002/testutils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func cardRouter(memberID string) *gin.Engine {
	r := testutils.SetupTestRouter()
	auth := func(c *gin.Context) {
		c.Set("member_id", memberID)
		c.Next()
	}
	r.GET("/billing/card", auth, GetActiveCard)
	r.DELETE("/billing/card", auth, RemoveCard)
	return r
}

func TestGetActiveCard_ReturnsMaskedCard(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT \* FROM "billing_keys" WHERE member_id = \$1 AND status = \$2`).
		WithArgs("member-1", "ACTIVE", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "member_id", "bid", "card_code", "card_name", "card_no_masked", "status"}).
			AddRow("key-1", "member-1", "bid-1", "04", "Samsung", "1234-12**-****-5678", "ACTIVE"))

	r := cardRouter("member-1")
	req, _ := http.NewRequest(http.MethodGet, "/billing/card", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)

	var body map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &body)
	card := body["billingKey"].(map[string]interface{})
	assert.Equal(t, "1234-12**-****-5678", card["cardNoMasked"])
	// The raw billing key must never leave the server.
	assert.NotContains(t, resp.Body.String(), "bid-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveCard_NoCard(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT \* FROM "billing_keys" WHERE member_id = \$1 AND status = \$2`).
		WillReturnError(gorm.ErrRecordNotFound)

	r := cardRouter("member-1")
	req, _ := http.NewRequest(http.MethodGet, "/billing/card", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)

	var body map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &body)
	assert.Nil(t, body["billingKey"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveCard_ExpiresAtProviderAndRemovesLocally(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT \* FROM "billing_keys" WHERE member_id = \$1 AND status = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "member_id", "bid", "status"}).
			AddRow("key-1", "member-1", "bid-1", "ACTIVE"))
	mock.ExpectExec(`UPDATE billing_keys SET status = \$1, updated_at = NOW\(\) WHERE id = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	stub := &stubGateway{}
	SetGateway(stub)
	defer SetGateway(nil)

	r := cardRouter("member-1")
	req, _ := http.NewRequest(http.MethodDelete, "/billing/card", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, stub.expireCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveCard_NoCardIs404(t *testing.T) {
	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT \* FROM "billing_keys" WHERE member_id = \$1 AND status = \$2`).
		WillReturnError(gorm.ErrRecordNotFound)

	SetGateway(&stubGateway{})
	defer SetGateway(nil)

	r := cardRouter("member-1")
	req, _ := http.NewRequest(http.MethodDelete, "/billing/card", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
