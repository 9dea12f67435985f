package billing

import (
	"errors"
	"net/http"

	"github.com/callendar-yojung/pecal-sub002/scheduler"
	"github.com/callendar-yojung/pecal-sub002/utils"

	"github.com/gin-gonic/gin"
)

var runner *scheduler.Runner

// SetRunner installs the shared scheduler runner. One runner per process:
// its run flag is what rejects overlapping ticks.
func SetRunner(r *scheduler.Runner) {
	runner = r
}

// RunBillingScheduler executes one recurring-billing pass and returns the
// run report. The route is guarded by the static cron secret.
// @Summary Trigger a recurring-billing pass
// @Description Charges every due subscription once. Intended for the external cron trigger.
// @Tags billing
// @Produce json
// @Success 200 {object} scheduler.Report
// @Failure 401 {object} map[string]string "error: Unauthorized"
// @Failure 409 {object} map[string]string "error: A billing run is already in progress"
// @Failure 500 {object} map[string]string "error: Server error"
// @Router /cron/billing [post]
func RunBillingScheduler(c *gin.Context) {
	if runner == nil {
		utils.LogError(nil, "Billing runner is not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server configuration error"})
		return
	}

	report, err := runner.Run()
	if err != nil {
		if errors.Is(err, scheduler.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "A billing run is already in progress"})
			return
		}
		utils.LogError(err, "Billing run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"processed": report.Processed,
		"results":   report.Results,
	})
}
