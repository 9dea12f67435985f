package billing

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/callendar-yojung/pecal-sub002/middleware"
	"github.com/callendar-yojung/pecal-sub002/scheduler"
	"github.com/callendar-yojung/pecal-sub002/testutils"
	"github.com/callendar-yojung/pecal-sub002/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	testutils.InitTestMain()

	log.SetOutput(io.Discard)
	utils.Logger.SetOutput(io.Discard)

	exitCode := m.Run()

	log.SetOutput(os.Stdout)

	os.Exit(exitCode)
}

func cronRouter() *gin.Engine {
	r := testutils.SetupTestRouter()
	r.POST("/cron/billing", middleware.CronAuth(), RunBillingScheduler)
	return r
}

func TestRunBillingScheduler_MissingSecretIsServerError(t *testing.T) {
	t.Setenv("CRON_SECRET", "")

	r := cronRouter()

	req, _ := http.NewRequest(http.MethodPost, "/cron/billing", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestRunBillingScheduler_WrongTokenRejected(t *testing.T) {
	t.Setenv("CRON_SECRET", "topsecret")

	r := cronRouter()

	req, _ := http.NewRequest(http.MethodPost, "/cron/billing", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRunBillingScheduler_NoRunnerConfigured(t *testing.T) {
	t.Setenv("CRON_SECRET", "topsecret")
	SetRunner(nil)

	r := cronRouter()

	req, _ := http.NewRequest(http.MethodPost, "/cron/billing", nil)
	req.Header.Set("Authorization", "Bearer topsecret")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestRunBillingScheduler_ReturnsReport(t *testing.T) {
	t.Setenv("CRON_SECRET", "topsecret")

	_, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT \* FROM "subscriptions" WHERE status = \$1 AND next_payment_date IS NOT NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	SetRunner(scheduler.NewRunner(&stubGateway{}))
	defer SetRunner(nil)

	r := cronRouter()

	req, _ := http.NewRequest(http.MethodPost, "/cron/billing", nil)
	req.Header.Set("Authorization", "Bearer topsecret")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)

	var body map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(0), body["processed"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
