package main

import (
	"fmt"
	"log"
	"os"

	"github.com/callendar-yojung/pecal-sub002/db"
	_ "github.com/callendar-yojung/pecal-sub002/docs"
	"github.com/callendar-yojung/pecal-sub002/handlers/billing"
	"github.com/callendar-yojung/pecal-sub002/nicepay"
	"github.com/callendar-yojung/pecal-sub002/routes"
	"github.com/callendar-yojung/pecal-sub002/scheduler"
	"github.com/callendar-yojung/pecal-sub002/utils"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

// @title API Pecal Billing
// @version 1.0
// @description Recurring billing API for the Pecal workspace
// @host localhost:8080
// @BasePath /
// @SecurityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter the JWT with the Bearer prefix: Bearer <JWT>
func main() {

	gin.SetMode(gin.ReleaseMode)

	db.InitDB()

	gateway, err := nicepay.NewClient()
	if err != nil {
		log.Printf("Warning: NicePay initialization failed: %v", err)
		log.Println("Card registration and recurring billing will not work.")
	} else {
		billing.SetGateway(gateway)

		runner := scheduler.NewRunner(gateway)
		billing.SetRunner(runner)

		// With CRON_SCHEDULE set the scheduler ticks in-process. Without it,
		// deployments trigger POST /cron/billing from an external cron.
		if schedule := os.Getenv("CRON_SCHEDULE"); schedule != "" {
			c := cron.New()
			_, err := c.AddFunc(schedule, func() {
				report, runErr := runner.Run()
				if runErr != nil {
					utils.LogError(runErr, "Billing scheduler run failed")
					return
				}
				utils.LogInfo(fmt.Sprintf("Billing scheduler run finished, %d subscriptions processed", report.Processed))
			})
			if err != nil {
				log.Fatal("Invalid CRON_SCHEDULE:", err)
			}
			c.Start()
		}
	}

	r := routes.SetupRouter()

	if err := r.Run(":8080"); err != nil {
		log.Fatal("Error starting the server:", err)
	}
}
